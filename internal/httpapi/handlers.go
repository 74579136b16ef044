package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"JournalSync/internal/domain"
)

type syncRequest struct {
	AuthorID          string               `json:"authorId"`
	DeviceID          string               `json:"deviceId"`
	Region            string               `json:"region,omitempty"`
	LastSyncTimestamp *time.Time           `json:"lastSyncTimestamp,omitempty"`
	Entries           []json.RawMessage    `json:"entries"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entries, decodeErrs := decodeEntries(req.Entries)
	outcome, err := s.sync.ProcessBatch(r.Context(), domain.SyncBatch{
		AuthorID:   req.AuthorID,
		DeviceID:   req.DeviceID,
		Region:     req.Region,
		LastSyncAt: req.LastSyncTimestamp,
		Entries:    entries,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	outcome.Errors = append(outcome.Errors, decodeErrs...)

	writeJSON(w, http.StatusOK, outcome)
}

// decodeEntries decodes each entry on its own so one malformed entry lands in
// the errors bucket instead of rejecting the batch. A missing array stays nil.
func decodeEntries(raw []json.RawMessage) ([]domain.ClientEntry, []domain.SyncError) {
	if raw == nil {
		return nil, nil
	}
	entries := make([]domain.ClientEntry, 0, len(raw))
	var errs []domain.SyncError
	for i, msg := range raw {
		var entry domain.ClientEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			var ident struct {
				ClientEntryID string `json:"clientEntryId"`
			}
			_ = json.Unmarshal(msg, &ident)
			if ident.ClientEntryID == "" {
				ident.ClientEntryID = fmt.Sprintf("#%d", i)
			}
			errs = append(errs, domain.SyncError{
				ClientID: ident.ClientEntryID,
				Error:    fmt.Sprintf("decode entry: %v", err),
			})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, errs
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.reader.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	author, err := s.reader.GetAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           author.ID,
		"lastDeviceId": author.LastDeviceID,
		"lastActiveAt": author.LastActiveAt,
	})
}

func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ClusterFilter{Region: q.Get("region")}

	var err error
	if v := q.Get("active"); v != "" {
		if filter.ActiveOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "active must be a boolean")
			return
		}
	}
	if filter.CreatedAfter, err = parseTimeParam(q.Get("since")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.MinMembers, err = parseIntParam("minMembers", q.Get("minMembers")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Limit, err = parseIntParam("limit", q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	clusters, err := s.reader.ListClusters(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if clusters == nil {
		clusters = []domain.Cluster{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (s *Server) handleRunClustering(w http.ResponseWriter, r *http.Request) {
	var window domain.Window
	if err := s.decodeBody(w, r, &window, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	clusters, err := s.clustering.Run(r.Context(), window)
	if err != nil && len(clusters) == 0 {
		s.writeDomainError(w, err)
		return
	}
	if err != nil {
		s.logger.Warn("clustering finished with failures", "error", err, "clusters", len(clusters))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AlertFilter{Category: domain.AlertCategory(q.Get("category"))}

	var err error
	if filter.CreatedAfter, err = parseTimeParam(q.Get("since")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Limit, err = parseIntParam("limit", q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.reader.ListAlerts(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleScanAlerts(w http.ResponseWriter, r *http.Request) {
	var window domain.Window
	if err := s.decodeBody(w, r, &window, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	alerts, err := s.alerts.Scan(r.Context(), window)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("since must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func parseIntParam(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
