/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package writer is the write path and index maintainer.

Every write goes through the same steps:

 1. The registry derives attributes (entity_type, title_lowercase, timestamps,
    index key attributes) on a copy of the payload.
 2. The registry validates required attributes; a violation is returned before
    any store call.
 3. The key builder computes pk/sk and the index keys the item participates in.
 4. One PutItem writes the full item, conditional on the item being new or
    already carrying the same entity_type.

Transient store errors are retried by the resilience package. Because a put
replaces the whole item, a retry after a lost response leaves exactly one item.

Update and Move read the current item with a strongly-consistent GetItem, merge
the changes and call Put, which keeps derived attributes in step with the
attributes they are computed from.
*/
package writer
