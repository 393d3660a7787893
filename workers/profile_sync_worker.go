package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"habit-league-system/services"
	"habit-league-system/store"

	"go.uber.org/zap"
)

// mirroredProfile is the subset of the profile service's user payload the
// progression engine cares about.
type mirroredProfile struct {
	ExternalID string    `json:"external_id"`
	Username   string    `json:"username"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []mirroredProfile `json:"users"`
}

// ProfileSyncWorker polls the profile service for changed accounts and
// keeps progression records in step: new accounts get their starter
// grants, renamed accounts get their display name refreshed. Progression
// rows are otherwise created lazily on first API call, so the worker is a
// backfill, not a gatekeeper.
type ProfileSyncWorker struct {
	store       store.Store
	progression *services.ProgressionService
	log         *zap.Logger

	baseURL      string
	serviceToken string
	interval     time.Duration
	httpClient   *http.Client
}

func NewProfileSyncWorker(st store.Store, prog *services.ProgressionService, log *zap.Logger, baseURL, serviceToken string, interval time.Duration) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		store:        st,
		progression:  prog,
		log:          log,
		baseURL:      baseURL,
		serviceToken: serviceToken,
		interval:     interval,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Run polls until ctx is cancelled. The first pass backfills from epoch.
func (w *ProfileSyncWorker) Run(ctx context.Context) {
	w.log.Info("profile sync worker started",
		zap.String("source", w.baseURL),
		zap.Duration("interval", w.interval))

	lastSync := time.Time{}
	if next, err := w.syncBatch(ctx, lastSync); err != nil {
		w.log.Warn("initial profile backfill failed", zap.Error(err))
	} else {
		lastSync = next
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("profile sync worker stopped")
			return
		case <-ticker.C:
			next, err := w.syncBatch(ctx, lastSync)
			if err != nil {
				// Keep lastSync: the same window is retried next tick.
				w.log.Error("profile sync batch failed", zap.Error(err))
				continue
			}
			lastSync = next
		}
	}
}

// syncBatch fetches profiles changed since the watermark and applies them,
// returning the new watermark.
func (w *ProfileSyncWorker) syncBatch(ctx context.Context, since time.Time) (time.Time, error) {
	batchStart := time.Now().UTC()

	profiles, err := w.fetchChanges(ctx, since)
	if err != nil {
		return since, err
	}
	if len(profiles) == 0 {
		return batchStart, nil
	}

	synced := 0
	for _, p := range profiles {
		if p.ExternalID == "" {
			continue
		}
		if err := w.apply(p); err != nil {
			w.log.Warn("profile apply failed",
				zap.String("external_id", p.ExternalID), zap.Error(err))
			continue
		}
		synced++
	}

	w.log.Info("profile sync batch applied",
		zap.Int("received", len(profiles)),
		zap.Int("synced", synced))
	return batchStart, nil
}

func (w *ProfileSyncWorker) fetchChanges(ctx context.Context, since time.Time) ([]mirroredProfile, error) {
	u, err := url.Parse(w.baseURL + "/api/v1/public/profiles")
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL %q: %w", w.baseURL, err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var response profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}
	return response.Users, nil
}

func (w *ProfileSyncWorker) apply(p mirroredProfile) error {
	user, err := w.progression.EnsureProgressionRecord(p.ExternalID, p.Username)
	if err != nil {
		return err
	}
	if p.Username == "" || user.DisplayName == p.Username {
		return nil
	}

	// Rename under the row lock with a fresh read. Saving the snapshot
	// from EnsureProgressionRecord would write every column and revert
	// any award or streak update that committed in between.
	return w.store.Transact(func(tx store.Store) error {
		u, err := tx.GetUserForUpdate(p.ExternalID)
		if err != nil {
			return err
		}
		if u.DisplayName == p.Username {
			return nil
		}
		u.DisplayName = p.Username
		return tx.SaveUser(u)
	})
}
