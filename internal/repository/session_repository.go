package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contractrisk/internal/model"
	"contractrisk/internal/session"
)

// SessionRepository is a session.Backend over the browser_sessions table.
type SessionRepository struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

type transientState struct {
	Flash        []session.Notice   `json:"flash,omitempty"`
	PendingLogin string             `json:"pending_login,omitempty"`
	Reset        *session.ResetFlow `json:"reset,omitempty"`
}

func NewSessionRepository(db *gorm.DB, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionRepository{db: db, ttl: ttl, now: time.Now}
}

func (r *SessionRepository) Load(ctx context.Context, id string) (*session.State, error) {
	var row model.BrowserSession
	if err := r.db.WithContext(ctx).Where("id = ? AND expires_at > ?", id, r.now()).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get browser session failed: %w", err)
	}
	return stateFromRow(&row)
}

func (r *SessionRepository) Save(ctx context.Context, id string, state *session.State) error {
	row, err := rowFromState(id, state)
	if err != nil {
		return err
	}
	row.ExpiresAt = r.now().Add(r.ttl)
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("save browser session failed: %w", err)
	}
	return nil
}

// Update locks the row for the duration of the read-modify-write.
func (r *SessionRepository) Update(ctx context.Context, id string, fn func(*session.State)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state := &session.State{}
		var row model.BrowserSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND expires_at > ?", id, r.now()).
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("lock browser session failed: %w", err)
		default:
			if loaded, err := stateFromRow(&row); err == nil {
				state = loaded
			}
		}

		fn(state)

		if state.Empty() {
			if err := tx.Where("id = ?", id).Delete(&model.BrowserSession{}).Error; err != nil {
				return fmt.Errorf("delete browser session failed: %w", err)
			}
			return nil
		}
		next, err := rowFromState(id, state)
		if err != nil {
			return err
		}
		next.ExpiresAt = r.now().Add(r.ttl)
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("save browser session failed: %w", err)
		}
		return nil
	})
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.BrowserSession{}).Error; err != nil {
		return fmt.Errorf("delete browser session failed: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose sliding expiry has passed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&model.BrowserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired browser sessions failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func rowFromState(id string, state *session.State) (*model.BrowserSession, error) {
	handles, err := json.Marshal(state.ChatHandles)
	if err != nil {
		return nil, fmt.Errorf("marshal chat handles failed: %w", err)
	}
	transient, err := json.Marshal(transientState{
		Flash:        state.Flash,
		PendingLogin: state.PendingLogin,
		Reset:        state.Reset,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transient state failed: %w", err)
	}
	return &model.BrowserSession{
		ID:          id,
		Token:       state.Token,
		ChatHandles: string(handles),
		Transient:   string(transient),
	}, nil
}

func stateFromRow(row *model.BrowserSession) (*session.State, error) {
	state := &session.State{Token: row.Token}
	if row.ChatHandles != "" && row.ChatHandles != "null" {
		if err := json.Unmarshal([]byte(row.ChatHandles), &state.ChatHandles); err != nil {
			return nil, fmt.Errorf("unmarshal chat handles failed: %w: %w", session.ErrCorruptState, err)
		}
	}
	if row.Transient != "" {
		var t transientState
		if err := json.Unmarshal([]byte(row.Transient), &t); err != nil {
			return nil, fmt.Errorf("unmarshal transient state failed: %w: %w", session.ErrCorruptState, err)
		}
		state.Flash = t.Flash
		state.PendingLogin = t.PendingLogin
		state.Reset = t.Reset
	}
	return state, nil
}
