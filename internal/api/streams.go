package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/query"
)

// StreamsResponse is the body of GET /get_available_streams.
type StreamsResponse struct {
	Streams []metric.Summary `json:"streams"`
}

// StreamResponse is the body of GET /get_stream.
type StreamResponse struct {
	Data   map[string]query.Stream `json:"data"`
	Errors map[string]string       `json:"errors,omitempty"`
}

// handleGetAvailableStreams lists every metric with its kind.
func (s *Server) handleGetAvailableStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := s.query.GetAvailableStreams(r.Context())
	if err != nil {
		s.logger.Error("listing streams failed", "error", err)
		writeInternalError(w, "failed to list streams")
		return
	}
	if streams == nil {
		streams = []metric.Summary{}
	}
	writeJSON(w, http.StatusOK, StreamsResponse{Streams: streams})
}

// handleGetStream returns readings for ?meters=a,b between ?start and ?end.
func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	meters := query.ParseNames(q.Get("meters"))
	if len(meters) == 0 {
		writeBadRequest(w, "meters query parameter is required")
		return
	}
	start, err := metric.ParseTime(q.Get("start"))
	if err != nil {
		writeBadRequest(w, "start must use the format YYYY-MM-DD HH:MM:SS")
		return
	}
	end, err := metric.ParseTime(q.Get("end"))
	if err != nil {
		writeBadRequest(w, "end must use the format YYYY-MM-DD HH:MM:SS")
		return
	}

	result, err := s.query.GetStream(r.Context(), meters, start, end)
	switch {
	case errors.Is(err, query.ErrInvalidRange):
		writeBadRequest(w, err.Error())
		return
	case errors.Is(err, query.ErrAllFailed) && allUnknown(result.Failures):
		writeJSON(w, http.StatusNotFound, streamResponse(result))
		return
	case errors.Is(err, query.ErrAllFailed):
		s.logger.Error("stream request failed", "meters", meters, "error", err)
		writeJSON(w, http.StatusInternalServerError, streamResponse(result))
		return
	case err != nil:
		s.logger.Error("stream request failed", "meters", meters, "error", err)
		writeInternalError(w, "failed to read streams")
		return
	}

	writeJSON(w, http.StatusOK, streamResponse(result))
}

func streamResponse(result query.Result) StreamResponse {
	resp := StreamResponse{Data: result.Data}
	if resp.Data == nil {
		resp.Data = map[string]query.Stream{}
	}
	if len(result.Failures) > 0 {
		resp.Errors = make(map[string]string, len(result.Failures))
		for name, err := range result.Failures {
			resp.Errors[name] = err.Error()
		}
	}
	return resp
}

// allUnknown reports whether every failure is an unknown metric.
func allUnknown(failures map[string]error) bool {
	if len(failures) == 0 {
		return false
	}
	for _, err := range failures {
		if !errors.Is(err, metric.ErrUnknownMetric) {
			return false
		}
	}
	return true
}
