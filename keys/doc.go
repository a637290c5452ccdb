/*
Package keys builds primary and secondary-index keys.

Key templates use {attribute} placeholders:

	ASSESSMENT#{id}        -> ASSESSMENT#3f0c...
	MESSAGE#{ts}           -> MESSAGE#00000000000000000042

Non-negative integers are zero-padded so that lexical order matches numeric
order. Index keys are read straight off the item, because every index key is an
ordinary attribute; an item missing either attribute of an index is simply not in it.
*/
package keys
