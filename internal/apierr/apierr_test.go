// SPDX-License-Identifier: MIT

package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(KindBadRequest))
	assert.Equal(t, http.StatusNotFound, Status(KindNotFound))
	assert.Equal(t, http.StatusBadGateway, Status(KindBadGateway))
	assert.Equal(t, http.StatusInternalServerError, Status(KindInternal))
}

func TestKindOf(t *testing.T) {
	err := New(KindBadGateway, "extractor failed")
	assert.Equal(t, KindBadGateway, KindOf(err))
	assert.Equal(t, KindBadGateway, KindOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindBadGateway, cause, "probe failed")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "probe failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRespondWritesShortBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Respond(rec, New(KindBadGateway, "no playable stream found"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "no playable stream found", strings.TrimSpace(rec.Body.String()))
}

func TestRespondPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	Respond(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), strings.TrimSpace(rec.Body.String()))
}
