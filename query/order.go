/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/trastore/storagemodels"
)

// orderTies orders items that share a range value by the index's tie-break
// attributes, in the page's direction. Items with distinct range values keep the
// store's relative order. The page holds the same items either way, so its
// continuation key is unaffected.
func orderTies(items []storagemodels.Item, rangeAttr string, tieBreak []string, descending bool) {
	if len(tieBreak) == 0 || len(items) < 2 {
		return
	}
	before := func(c int) bool {
		if descending {
			return c > 0
		}
		return c < 0
	}
	sort.SliceStable(items, func(i, j int) bool {
		if c := compareValues(items[i][rangeAttr], items[j][rangeAttr]); c != 0 {
			return before(c)
		}
		for _, attr := range tieBreak {
			if c := compareValues(items[i][attr], items[j][attr]); c != 0 {
				return before(c)
			}
		}
		return false
	})
}

// compareValues orders numbers numerically and everything else lexically. A missing
// value sorts first.
func compareValues(a, b types.AttributeValue) int {
	sa, aok := scalar(a)
	sb, bok := scalar(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}

	_, aNum := a.(*types.AttributeValueMemberN)
	_, bNum := b.(*types.AttributeValueMemberN)
	if aNum && bNum {
		fa, errA := strconv.ParseFloat(sa, 64)
		fb, errB := strconv.ParseFloat(sb, 64)
		if errA == nil && errB == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(sa, sb)
}

func scalar(av types.AttributeValue) (string, bool) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		return tv.Value, true
	}
	return "", false
}
