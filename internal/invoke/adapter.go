package invoke

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
)

// Function-side timeouts come back as a function error with this type.
const sandboxTimeoutType = "Sandbox.Timedout"

// classifyError maps an SDK error to an ErrorKind and a display message.
// This is the only place error codes are inspected.
func classifyError(err error) (ErrorKind, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout, "invocation deadline exceeded"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout, netErr.Error()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
		if apiErr.ErrorFault() == smithy.FaultServer || isServiceSideCode(apiErr) {
			return ErrorKindInvocation, msg
		}
		return ErrorKindClient, msg
	}

	if errors.Is(err, context.Canceled) {
		return ErrorKindClient, "invocation canceled"
	}
	return ErrorKindClient, err.Error()
}

// isServiceSideCode lists Lambda exceptions that are raised for problems in
// the function's own runtime environment rather than in the request.
func isServiceSideCode(apiErr smithy.APIError) bool {
	var (
		serviceErr *types.ServiceException
		runtimeErr *types.InvalidRuntimeException
		zipErr     *types.InvalidZipFileException
		eniErr     *types.ENILimitReachedException
	)
	switch {
	case errors.As(apiErr, &serviceErr),
		errors.As(apiErr, &runtimeErr),
		errors.As(apiErr, &zipErr),
		errors.As(apiErr, &eniErr):
		return true
	}
	return strings.HasPrefix(apiErr.ErrorCode(), "EC2") || strings.HasPrefix(apiErr.ErrorCode(), "KMS")
}

// classifyFunctionError maps a function error reported in a 200 response.
func classifyFunctionError(errorType, errorMessage string) ErrorKind {
	if errorType == sandboxTimeoutType || strings.Contains(errorMessage, "Task timed out") {
		return ErrorKindTimeout
	}
	return ErrorKindInvocation
}
