package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlas-scientific-service/internal/atlas"
	"atlas-scientific-service/internal/atlaslog"
	"atlas-scientific-service/internal/i2c"
)

type fakeRawBus struct {
	pingsOK map[i2c.Address]bool
	queued  map[i2c.Address][][]byte
}

func newFakeRawBus() *fakeRawBus {
	return &fakeRawBus{pingsOK: map[i2c.Address]bool{}, queued: map[i2c.Address][][]byte{}}
}

func (f *fakeRawBus) queue(addr i2c.Address, responses ...[]byte) {
	f.queued[addr] = append(f.queued[addr], responses...)
}

func (f *fakeRawBus) Ping(addr i2c.Address) bool { return f.pingsOK[addr] }

func (f *fakeRawBus) Read(addr i2c.Address) ([]byte, error) {
	q := f.queued[addr]
	if len(q) == 0 {
		return nil, nil
	}
	next := q[0]
	f.queued[addr] = q[1:]
	return next, nil
}

func (f *fakeRawBus) Write(addr i2c.Address, data []byte) error { return nil }

type instantSleeper struct{}

func (instantSleeper) Sleep(time.Duration) {}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestServer(raw *fakeRawBus) http.Handler {
	bus := atlas.NewBus(raw,
		atlas.WithClock(fixedClock{t: time.Unix(1582672093, 0).UTC()}),
		atlas.WithSleeper(instantSleeper{}),
		atlas.WithTimeout(time.Second),
	)
	return NewServer(bus, atlaslog.NewNop())
}

func TestGetSampleHandler(t *testing.T) {
	raw := newFakeRawBus()
	raw.pingsOK[99] = true
	raw.queue(99, []byte("\x01?i,pH,1.98\x00"), []byte("\x019.560\x00"))

	srv := newTestServer(raw)
	req := httptest.NewRequest(http.MethodGet, "/api/devices/99/sample", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var samples []sampleDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, "9.560", samples[0].Value)
	assert.Equal(t, "PH", samples[0].UnitCode)
}

func TestGetSampleHandlerUnknownAddressReturnsNotFound(t *testing.T) {
	raw := newFakeRawBus()
	srv := newTestServer(raw)
	req := httptest.NewRequest(http.MethodGet, "/api/devices/5/sample", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no_device_at_address", body.ErrorCode)
}

func TestSetConfigurationHandler(t *testing.T) {
	raw := newFakeRawBus()
	raw.pingsOK[100] = true
	raw.queue(100, []byte("\x01?i,pH,1.98\x00"), []byte{0x01})

	srv := newTestServer(raw)
	body, _ := json.Marshal(configurationParameterDTO{Parameter: "led", Value: "true"})
	req := httptest.NewRequest(http.MethodPost, "/api/devices/100/configuration", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetCalibrationHandlerValidation(t *testing.T) {
	raw := newFakeRawBus()
	raw.pingsOK[30] = true
	raw.queue(30, []byte("\x01?i,EC,2.0\x00"))

	srv := newTestServer(raw)
	body, _ := json.Marshal(calibrationPointDTO{Point: "not-a-real-point"})
	req := httptest.NewRequest(http.MethodPut, "/api/devices/30/sample/calibration", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDevicesEmptyByDefault(t *testing.T) {
	raw := newFakeRawBus()
	srv := newTestServer(raw)
	req := httptest.NewRequest(http.MethodGet, "/api/devices/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var devices []deviceInfoDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
	assert.Empty(t, devices)
}
