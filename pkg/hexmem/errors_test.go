package hexmem_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/hexmem/hexmem/pkg/hexmem"
	"github.com/stretchr/testify/assert"
)

func TestKindOf_ClassifiesEachSentinel(t *testing.T) {
	cases := []struct {
		err  error
		want hexmem.Kind
	}{
		{fmt.Errorf("wrap: %w", hexmem.ErrInvalidArgument), hexmem.KindInvalidArgument},
		{fmt.Errorf("wrap: %w", hexmem.ErrUnauthenticated), hexmem.KindUnauthenticated},
		{fmt.Errorf("wrap: %w", hexmem.ErrPermissionDenied), hexmem.KindPermissionDenied},
		{fmt.Errorf("wrap: %w", hexmem.ErrNotFound), hexmem.KindNotFound},
		{fmt.Errorf("wrap: %w", hexmem.ErrConflict), hexmem.KindConflict},
		{fmt.Errorf("wrap: %w", hexmem.ErrCapabilityUnavailable), hexmem.KindCapabilityUnavailable},
		{hexmem.ErrEmbeddingUnavailable, hexmem.KindCapabilityUnavailable},
		{fmt.Errorf("some opaque store failure"), hexmem.KindInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, hexmem.KindOf(c.err))
	}
}

func TestKindOf_Nil(t *testing.T) {
	assert.Equal(t, hexmem.Kind(""), hexmem.KindOf(nil))
}

func TestStatusCode_MapsEachKind(t *testing.T) {
	cases := []struct {
		kind hexmem.Kind
		want int
	}{
		{hexmem.KindInvalidArgument, http.StatusBadRequest},
		{hexmem.KindUnauthenticated, http.StatusUnauthorized},
		{hexmem.KindPermissionDenied, http.StatusForbidden},
		{hexmem.KindNotFound, http.StatusNotFound},
		{hexmem.KindConflict, http.StatusConflict},
		{hexmem.KindCapabilityUnavailable, http.StatusServiceUnavailable},
		{hexmem.KindInternal, http.StatusInternalServerError},
		{hexmem.Kind("unrecognized"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, hexmem.StatusCode(c.kind))
	}
}

func TestNewDedupConflict_CarriesMatchDetail(t *testing.T) {
	err := hexmem.NewDedupConflict("fact-123", 0.97)

	var conflict *hexmem.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, "fact-123", conflict.ExistingID)
	assert.Equal(t, 0.97, conflict.Similarity)
	assert.Contains(t, err.Error(), "fact-123")

	assert.Equal(t, hexmem.KindConflict, hexmem.KindOf(err))
	assert.Equal(t, http.StatusConflict, hexmem.StatusCode(hexmem.KindOf(err)))
}

func TestConflictError_Unwraps(t *testing.T) {
	err := hexmem.NewDedupConflict("fact-1", 0.5)
	assert.ErrorIs(t, err, hexmem.ErrConflict)
}
