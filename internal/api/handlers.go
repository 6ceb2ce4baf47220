package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atlas-scientific-service/internal/atlas"
	"atlas-scientific-service/internal/atlaserr"
	"atlas-scientific-service/internal/i2c"
)

// deviceInfoDTO is the wire shape for DeviceInfo.
type deviceInfoDTO struct {
	Address         int    `json:"address"`
	DeviceType      string `json:"device_type"`
	FirmwareVersion string `json:"firmware_version"`
}

func toDeviceInfoDTO(i atlas.DeviceInfo) deviceInfoDTO {
	return deviceInfoDTO{Address: int(i.Address), DeviceType: i.DeviceType, FirmwareVersion: i.FirmwareVersion}
}

type outputUnitDTO struct {
	Symbol    string `json:"symbol"`
	Unit      string `json:"unit"`
	UnitCode  string `json:"unit_code"`
	ValueType string `json:"value_type"`
	IsEnabled bool   `json:"is_enable"`
}

type sampleDTO struct {
	Symbol    string `json:"symbol"`
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
	UnitCode  string `json:"unit_code"`
}

func toSampleDTO(s atlas.Sample) sampleDTO {
	return sampleDTO{
		Symbol:    s.Symbol,
		Timestamp: s.Timestamp.Format("2006-01-02 15:04:05-07:00"),
		Value:     s.Value,
		ValueType: string(s.ValueType),
		UnitCode:  s.UnitCode,
	}
}

type compensationFactorDTO struct {
	Factor string `json:"factor"`
	Symbol string `json:"symbol"`
	Value  string `json:"value"`
}

type calibrationPointDTO struct {
	Point       string  `json:"point"`
	ActualValue *string `json:"actual_value"`
}

type configurationParameterDTO struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

type enabledOutputsDTO struct {
	UnitCodes []string `json:"unit_codes"`
}

func addressFromPath(r *http.Request) (i2c.Address, error) {
	raw := chi.URLParam(r, "address")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, atlaserr.RequestValidation("address must be an integer")
	}
	return i2c.NewAddress(n)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.bus.Scan(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	known := s.bus.Known()
	out := make([]deviceInfoDTO, 0, len(known))
	for _, i := range known {
		out = append(out, toDeviceInfoDTO(i))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceInfoDTO(d.GetDeviceInfo()))
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}

	var factors []compensationFactorDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&factors); err != nil {
			writeError(w, atlaserr.RequestValidation("invalid compensation factor payload"))
			return
		}
	}

	samples, err := d.ReadSample(r.Context(), toCompensationFactors(factors))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]sampleDTO, 0, len(samples))
	for _, sm := range samples {
		out = append(out, toSampleDTO(sm))
	}
	writeJSON(w, http.StatusOK, out)
}

func toCompensationFactors(in []compensationFactorDTO) []atlas.CompensationFactor {
	out := make([]atlas.CompensationFactor, 0, len(in))
	for _, f := range in {
		out = append(out, atlas.CompensationFactor{Factor: f.Factor, Symbol: f.Symbol, Value: f.Value})
	}
	return out
}

func (s *Server) handleGetOutputs(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	enabled, err := d.GetEnabledOutputMeasurements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	enabledSet := make(map[string]bool, len(enabled))
	for _, u := range enabled {
		enabledSet[u.UnitCode] = true
	}

	supported := d.GetSupportedOutputMeasurements()
	out := make([]outputUnitDTO, 0, len(supported))
	for _, u := range supported {
		out = append(out, outputUnitDTO{
			Symbol:    u.Symbol,
			Unit:      u.Unit,
			UnitCode:  u.UnitCode,
			ValueType: string(u.ValueType),
			IsEnabled: enabledSet[u.UnitCode],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetOutputs(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}

	var body enabledOutputsDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, atlaserr.RequestValidation("invalid enabled-outputs payload"))
		return
	}

	if err := d.SetEnabledOutputMeasurements(r.Context(), body.UnitCodes); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCompensation(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}

	var factors []compensationFactorDTO
	if err := json.NewDecoder(r.Body).Decode(&factors); err != nil {
		writeError(w, atlaserr.RequestValidation("invalid compensation factor payload"))
		return
	}

	if err := d.SetMeasurementCompensationFactors(r.Context(), toCompensationFactors(factors)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCalibration(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}

	var body calibrationPointDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, atlaserr.RequestValidation("invalid calibration point payload"))
		return
	}

	point := atlas.CalibrationPoint{Point: body.Point}
	if body.ActualValue != nil {
		point.HasValue = true
		point.ActualValue = *body.ActualValue
	}

	if err := d.SetCalibrationPoint(r.Context(), point); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetConfiguration(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.bus.ByAddress(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}

	var body configurationParameterDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, atlaserr.RequestValidation("invalid configuration parameter payload"))
		return
	}

	param := atlas.ConfigurationParameter{Parameter: body.Parameter, Value: body.Value}
	if err := d.SetConfigurationParameter(r.Context(), param); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
