package sweeperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesCauseWhenWrapped(t *testing.T) {
	cause := errors.New("usb disconnected")
	err := Wrap(KindRadioUnavailable, "radio.Open", "open device", cause)
	assert.Contains(t, err.Error(), "radio.Open")
	assert.Contains(t, err.Error(), "RadioUnavailable")
	assert.Contains(t, err.Error(), "open device")
	assert.Contains(t, err.Error(), "usb disconnected")
}

func TestError_MessageOmitsCauseWhenNil(t *testing.T) {
	err := New(KindConfigInvalid, "config.Validate", "bad value")
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindIOWriteFailed, "baseline.Save", "write failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIs_MatchesKindThroughWrapping(t *testing.T) {
	err := Wrap(KindBaselineCorrupt, "baseline.Load", "decode", errors.New("eof"))
	assert.True(t, Is(err, KindBaselineCorrupt))
	assert.False(t, Is(err, KindBaselineMissing))
	assert.False(t, Is(errors.New("plain error"), KindBaselineCorrupt))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "ConfigInvalid", KindConfigInvalid.String())
	assert.Equal(t, "Cancelled", KindCancelled.String())
	assert.Equal(t, "Unknown", Kind(999).String())
}
