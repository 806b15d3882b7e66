package workflow

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/instance-deploy/internal/model"
)

// ErrorKindInterceptor is a Temporal worker interceptor that carries the
// deploy error kind across the activity boundary as the application error
// type. Errors without a kind are typed with the activity name.
type ErrorKindInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (e *ErrorKindInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &errorKindActivityInterceptor{next: next}
}

type errorKindActivityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next interceptor.ActivityInboundInterceptor
}

func (e *errorKindActivityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return e.next.Init(outbound)
}

func (e *errorKindActivityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	result, err := e.next.ExecuteActivity(ctx, in)
	if err != nil {
		return result, typedActivityError(err, activity.GetInfo(ctx).ActivityType.Name)
	}
	return result, nil
}

// typedActivityError converts err into an application error whose type is
// the deploy error kind, or fallback when err has none. Errors that already
// carry a type are returned unchanged.
func typedActivityError(err error, fallback string) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return err
	}
	errType := fallback
	var kindErr *model.Error
	if errors.As(err, &kindErr) {
		errType = string(kindErr.Kind)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}

// ErrorKind recovers the deploy error kind from an error returned by an
// activity future, or "" when none was recorded.
func ErrorKind(err error) model.ErrorKind {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return ""
	}
	switch kind := model.ErrorKind(appErr.Type()); kind {
	case model.KindValidation, model.KindAuthMissing, model.KindAuthInvalid,
		model.KindPrerequisite, model.KindProvisioningTimeout, model.KindRemoteAPI:
		return kind
	}
	return ""
}
