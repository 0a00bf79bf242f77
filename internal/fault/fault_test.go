package fault_test

import (
	"errors"
	"fmt"

	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/s3site/internal/fault"
)

func TestUserErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("resolving bucket: %w", fault.BadUser("access denied: %s", "nope"))
	require.True(t, fault.IsUserError(err))
	require.EqualError(t, err, "resolving bucket: access denied: nope")

	err = fmt.Errorf("scan: %w", fault.Precondition("folder %s does not exist", "site"))
	require.True(t, fault.IsUserError(err))
}

func TestOtherErrorsAreSystemErrors(t *testing.T) {
	require.False(t, fault.IsUserError(errors.New("connection reset")))
	require.False(t, fault.IsUserError(nil))
}
