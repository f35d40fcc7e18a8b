package store

import (
	"context"
	"errors"
	"sync"

	"advanced-todo/internal/models"
	"advanced-todo/internal/repository"
	"advanced-todo/internal/session"
	"advanced-todo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthStore owns the session user and binds the TaskStore to it.
type AuthStore struct {
	mu   sync.Mutex
	user *models.User

	gw     repository.Gateway
	marker session.Marker
	tasks  *TaskStore
	log    *logger.Loggers

	subs listeners
}

func NewAuthStore(gw repository.Gateway, marker session.Marker, tasks *TaskStore, log *logger.Loggers) *AuthStore {
	return &AuthStore{
		gw:     gw,
		marker: marker,
		tasks:  tasks,
		log:    log,
	}
}

func (a *AuthStore) Subscribe(fn func(Event)) func() {
	return a.subs.add(fn)
}

// CurrentUser returns the session user.
func (a *AuthStore) CurrentUser() (models.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return models.User{}, false
	}
	return *a.user, true
}

// SignUp creates a user and starts a session for it. It fails with
// ErrDuplicateUsername, without any change, when the username is taken.
func (a *AuthStore) SignUp(ctx context.Context, username, password string) (models.User, error) {
	a.mu.Lock()

	existing, err := a.gw.FetchUsers(ctx, repository.UserByUsername(username))
	if err != nil {
		a.mu.Unlock()
		a.log.Error.Error("Failed to look up username", zap.String("username", username), zap.Error(err))
		return models.User{}, err
	}
	if len(existing) > 0 {
		a.mu.Unlock()
		a.log.Security.Warn("Sign up rejected, username taken", zap.String("username", username))
		return models.User{}, ErrDuplicateUsername
	}

	u := models.User{ID: uuid.New(), Username: username, Password: password}
	a.gw.InsertUser(repository.UserRecord{ID: u.ID, Username: u.Username, Password: u.Password})
	if err := a.gw.Flush(ctx); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			taken, lookupErr := a.takenByOther(ctx, u)
			if lookupErr != nil {
				a.mu.Unlock()
				a.log.Error.Error("Failed to look up username", zap.String("username", username), zap.Error(lookupErr))
				return models.User{}, lookupErr
			}
			if taken {
				a.mu.Unlock()
				a.log.Security.Warn("Sign up rejected, username taken", zap.String("username", username))
				return models.User{}, ErrDuplicateUsername
			}
		}
		a.log.Error.Error("Failed to persist sign up", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	bound := a.bindLocked(ctx, &u)
	a.mu.Unlock()

	a.tasks.subs.emit(bound)
	a.log.Audit.Info("User signed up", zap.String("user_id", u.ID.String()), zap.String("username", username))
	a.emit(&u)
	return u, nil
}

// Login starts a session for the user matching both credentials and records
// it as the last logged in user. A mismatch leaves the session untouched.
func (a *AuthStore) Login(ctx context.Context, username, password string) (models.User, error) {
	a.mu.Lock()

	recs, err := a.gw.FetchUsers(ctx, repository.UserByCredentials(username, password))
	if err != nil {
		a.mu.Unlock()
		a.log.Error.Error("Failed to look up credentials", zap.String("username", username), zap.Error(err))
		return models.User{}, err
	}
	if len(recs) == 0 {
		a.mu.Unlock()
		a.log.Security.Warn("Login failed", zap.String("username", username))
		return models.User{}, ErrInvalidCredentials
	}

	u := toUser(recs[0])
	if err := a.marker.Save(ctx, u.ID); err != nil {
		a.log.Error.Error("Failed to save session marker", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	bound := a.bindLocked(ctx, &u)
	a.mu.Unlock()

	a.tasks.subs.emit(bound)
	a.log.Audit.Info("User logged in", zap.String("user_id", u.ID.String()))
	a.emit(&u)
	return u, nil
}

// Logout ends the session. The last-user marker is kept so the next start
// restores this session.
func (a *AuthStore) Logout() {
	a.mu.Lock()
	prev := a.user
	bound := a.bindLocked(context.Background(), nil)
	a.mu.Unlock()

	a.tasks.subs.emit(bound)

	if prev != nil {
		a.log.Audit.Info("User logged out", zap.String("user_id", prev.ID.String()))
	}
	a.emit(nil)
}

// Restore resumes the session of the last logged in user. A missing marker,
// an unknown user or a storage failure leave the session empty; ok reports
// whether a session was restored.
func (a *AuthStore) Restore(ctx context.Context) (u models.User, ok bool) {
	id, found, err := a.marker.Load(ctx)
	if err != nil {
		a.log.Error.Error("Failed to load session marker", zap.Error(err))
		return models.User{}, false
	}
	if !found {
		a.log.System.Info("No previous session to restore")
		return models.User{}, false
	}

	a.mu.Lock()
	recs, err := a.gw.FetchUsers(ctx, repository.UserByID(id))
	if err != nil {
		a.mu.Unlock()
		a.log.Error.Error("Failed to restore session", zap.String("user_id", id.String()), zap.Error(err))
		return models.User{}, false
	}
	if len(recs) == 0 {
		a.mu.Unlock()
		a.log.System.Info("Session marker references a missing user", zap.String("user_id", id.String()))
		return models.User{}, false
	}

	u = toUser(recs[0])
	bound := a.bindLocked(ctx, &u)
	a.mu.Unlock()

	a.tasks.subs.emit(bound)
	a.log.Audit.Info("Session restored", zap.String("user_id", u.ID.String()))
	a.emit(&u)
	return u, true
}

// takenByOther reports whether username belongs to a user other than u. A
// conflict from Flush may come from an older queued insert.
func (a *AuthStore) takenByOther(ctx context.Context, u models.User) (bool, error) {
	recs, err := a.gw.FetchUsers(ctx, repository.UserByUsername(u.Username))
	if err != nil {
		return false, err
	}
	return len(recs) > 0 && recs[0].ID != u.ID, nil
}

// bindLocked sets the session user and rebinds the task list. The returned
// task event is emitted by the caller once a.mu is released. Fetch failures
// are logged by the TaskStore.
func (a *AuthStore) bindLocked(ctx context.Context, u *models.User) Event {
	a.user = u
	snapshot, _ := a.tasks.bind(ctx, u)
	return snapshot
}

func (a *AuthStore) emit(u *models.User) {
	e := Event{Kind: EventSessionChanged}
	if u != nil {
		cp := *u
		e.User = &cp
	}
	a.subs.emit(e)
}

func toUser(rec repository.UserRecord) models.User {
	return models.User{ID: rec.ID, Username: rec.Username, Password: rec.Password}
}
