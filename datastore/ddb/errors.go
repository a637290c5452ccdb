/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/suparena/trastore/errors"
)

// throttleCodes are API error codes that mean "slow down".
var throttleCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ThrottlingException":                    true,
	"LimitExceededException":                 true,
}

// unavailableCodes are API error codes for server-side transient failures.
var unavailableCodes = map[string]bool{
	"InternalServerError":            true,
	"ServiceUnavailable":             true,
	"TransactionInProgressException": true,
}

// classify maps an SDK error onto the trastore error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewStoreError(op, 1, err)
	}

	var ccf *types.ConditionalCheckFailedException
	if stderrors.As(err, &ccf) {
		return errors.NewConditionFailedError(op, ccf.ErrorMessage())
	}

	var pte *types.ProvisionedThroughputExceededException
	if stderrors.As(err, &pte) {
		return errors.NewThrottledError(op, err)
	}
	var rle *types.RequestLimitExceeded
	if stderrors.As(err, &rle) {
		return errors.NewThrottledError(op, err)
	}
	var ise *types.InternalServerError
	if stderrors.As(err, &ise) {
		return errors.NewUnavailableError(op, err)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case throttleCodes[apiErr.ErrorCode()]:
			return errors.NewThrottledError(op, err)
		case unavailableCodes[apiErr.ErrorCode()]:
			return errors.NewUnavailableError(op, err)
		case apiErr.ErrorFault() == smithy.FaultServer:
			return errors.NewUnavailableError(op, err)
		}
		return errors.NewStoreError(op, 1, err)
	}

	// Connection resets, DNS failures and the like never reached the service.
	var sendErr *smithyhttp.RequestSendError
	if stderrors.As(err, &sendErr) {
		return errors.NewUnavailableError(op, err)
	}

	return errors.NewStoreError(op, 1, err)
}
