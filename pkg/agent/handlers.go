package agent

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/bascanada/hblog/pkg/logaccessor/filter"
	"github.com/bascanada/hblog/pkg/logaccessor/multifile"
	"github.com/bascanada/hblog/pkg/logaccessor/singlefile"
)

const (
	streamMaxKLinesFollow  = 3
	streamMaxKLinesDefault = 20000
	summaryMaxKLines       = 20000
)

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<pre>\n")
	fmt.Fprint(w, "Examples:\n")
	for _, href := range []string{"/log/stream", "/log/summary"} {
		fmt.Fprintf(w, "<a href=\"%s\">%s</a>\n", href, href)
	}
	fmt.Fprint(w, "</pre>\n")
}

// logStreamHandler streams every surviving LogRecord as its own envelope,
// followed by one exit-status envelope carrying the resume cursor.
func (s *Server) logStreamHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")

	p, err := parseRequestParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	maxKLines := streamMaxKLinesDefault
	if p.UniversalOffset != nil {
		maxKLines = streamMaxKLinesFollow
	}

	reader, err := s.openReader(p, maxKLines)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, ErrCodeBackendError, err.Error())
		return
	}
	defer reader.Close()

	if err := s.seek(reader, p); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	chain, err := p.buildChain()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	runErr := filter.Run(reader, chain, func(rec *logaccessor.LogRecord) {
		_ = enc.Encode(logaccessor.Envelope{PkgCls: logaccessor.PkgClsLine, PkgObj: rec})
		if flusher != nil {
			flusher.Flush()
		}
	})
	if runErr != nil {
		s.logger.Error("log stream aborted", "err", runErr)
		return
	}

	offset := reader.UniversalOffset()
	_ = enc.Encode(logaccessor.Envelope{
		PkgCls: logaccessor.PkgClsExitStatus,
		PkgObj: logaccessor.ExitStatus{Status: "success", UniversalOffset: &offset},
	})
	if flusher != nil {
		flusher.Flush()
	}
}

// logSummaryHandler folds every surviving record into a single Summary
// envelope, followed by an exit-status envelope with no cursor.
func (s *Server) logSummaryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")

	p, err := parseRequestParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	reader, err := s.openReader(p, summaryMaxKLines)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, ErrCodeBackendError, err.Error())
		return
	}
	defer reader.Close()

	if err := s.seek(reader, p); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	chain, err := p.buildChain()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	summary := logaccessor.NewSummary()
	runErr := filter.Run(reader, chain, func(rec *logaccessor.LogRecord) {
		summary.Add(*rec)
	})
	if runErr != nil {
		s.logger.Error("log summary aborted", "err", runErr)
		return
	}

	enc := json.NewEncoder(w)
	_ = enc.Encode(logaccessor.Envelope{PkgCls: logaccessor.PkgClsLine, PkgObj: summary})
	_ = enc.Encode(logaccessor.Envelope{
		PkgCls: logaccessor.PkgClsExitStatus,
		PkgObj: logaccessor.ExitStatus{Status: "success"},
	})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) openReader(p *requestParams, maxKLines int) (*multifile.Reader, error) {
	return multifile.Open(p.Glob, singlefile.Options{
		MaxKLines:    maxKLines,
		SamplingRate: p.SamplingRate,
	})
}

func (s *Server) seek(reader *multifile.Reader, p *requestParams) error {
	if p.UniversalOffset != nil {
		if s.verbose {
			s.logger.Debug("seeking to offset", "offset", p.UniversalOffset.String())
		}
		return reader.SeekOffset(*p.UniversalOffset)
	}

	start, err := parseQueryTime(p.Start)
	if err != nil {
		return fmt.Errorf("invalid start parameter %q: %w", p.Start, err)
	}
	if s.verbose {
		s.logger.Debug("seeking to time", "start", p.Start)
	}
	return reader.SeekTime(start)
}
