package s3io

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/studio1767/s3site/internal/fault"
)

type ErrAccessDenied struct {
	Operation string
	Msg       string
}

func (e *ErrAccessDenied) Error() string {
	return fmt.Sprintf("access denied during %s: %s", e.Operation, e.Msg)
}

type ErrBucketTaken struct {
	Bucket string
}

func (e *ErrBucketTaken) Error() string {
	return fmt.Sprintf("bucket name %s is already in use by another account", e.Bucket)
}

// UserError reports access denied as a user error; the credentials are the
// user's to fix. Other errors are returned as they are.
func UserError(err error) error {
	var denied *ErrAccessDenied
	if errors.As(err, &denied) {
		return fault.BadUser("Access denied: %s", denied.Msg)
	}
	return err
}

func httpStatus(err error) int {
	var responseError *awshttp.ResponseError
	if errors.As(err, &responseError) {
		return responseError.ResponseError.HTTPStatusCode()
	}
	return 0
}

func errorCode(err error) string {
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		return apiError.ErrorCode()
	}
	return ""
}

// translate maps the failures the engine must tell apart onto our error
// types and leaves everything else untouched.
func translate(operation string, err error) error {
	if err == nil {
		return nil
	}
	if httpStatus(err) == http.StatusForbidden || errorCode(err) == "AccessDenied" {
		msg := err.Error()
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorMessage() != "" {
			msg = apiError.ErrorMessage()
		}
		return &ErrAccessDenied{
			Operation: operation,
			Msg:       msg,
		}
	}
	return err
}
