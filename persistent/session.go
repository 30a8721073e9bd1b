package persistent

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adevtutorials/authors"
	"github.com/google/uuid"
	"github.com/tidwall/buntdb"
)

const sessionTTL = 30 * 24 * time.Hour // 30 days

type Session struct {
	Id             string    `json:"id"`
	UserId         int64     `json:"userId"`
	Token          string    `json:"token"`
	Ip             string    `json:"ip"`
	UserAgent      string    `json:"userAgent"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s Session) ToDomain() authors.Session {
	return authors.Session{
		Id:             s.Id,
		UserId:         authors.UserId(s.UserId),
		Token:          s.Token,
		Ip:             s.Ip,
		UserAgent:      s.UserAgent,
		LastAccessedAt: s.LastAccessedAt,
		ExpiresAt:      s.ExpiresAt,
	}
}

type SessionStore struct {
	Buntdb        *buntdb.DB
	ActivityStore authors.ActivityStore
}

func (s *SessionStore) CreateIndexes() error {
	return s.Buntdb.CreateIndex("sessions", "session:*", buntdb.IndexString)
}

func (s *SessionStore) RegisterNew(ctx context.Context, userId authors.UserId, ip string, userAgent string) (authors.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return authors.Session{}, fmt.Errorf("generate token: %w", err)
	}
	id := uuid.New().String()

	session := Session{
		Id:             id,
		UserId:         int64(userId),
		Token:          token,
		Ip:             ip,
		UserAgent:      userAgent,
		LastAccessedAt: time.Now().UTC(),
		ExpiresAt:      time.Now().UTC().Add(sessionTTL),
	}
	serializedSession, err := json.Marshal(&session)
	if err != nil {
		return authors.Session{}, fmt.Errorf("session serialize: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		expireOptions := &buntdb.SetOptions{Expires: true, TTL: sessionTTL}

		_, replaced, err := tx.Set("session_by_id:"+session.Id, session.Token, expireOptions)
		if err != nil {
			return fmt.Errorf("set map session id to auth token: %w", err)
		}
		if replaced {
			return fmt.Errorf("uuid collision '%s'", session.Id)
		}

		_, _, err = tx.Set("session:"+session.Token, string(serializedSession), expireOptions)
		if err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return nil
	})
	if err != nil {
		return authors.Session{}, fmt.Errorf("bunt update: %w", err)
	}

	err = s.ActivityStore.AddLog(ctx, userId, authors.Activity{Name: "session_created", Data: map[string]interface{}{
		"ip":         ip,
		"userAgent":  userAgent,
		"session_id": id,
	}})
	if err != nil {
		return authors.Session{}, fmt.Errorf("add session_created activity log: %w", err)
	}
	return session.ToDomain(), nil
}

func sessionByToken(tx *buntdb.Tx, token string) (Session, error) {
	serializedSession, err := tx.Get("session:" + token)
	if err != nil {
		return Session{}, fmt.Errorf("get serialized session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
		return Session{}, fmt.Errorf("deserialize session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) ByToken(token string) (authors.Session, error) {
	var session Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err error
		session, err = sessionByToken(tx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return authors.Session{}, authors.ErrSessionNotFound
		}
		return authors.Session{}, fmt.Errorf("buntdb view: %w", err)
	}
	return session.ToDomain(), nil
}

// activeSessions lists the sessions of one user only; a token never grants a
// view of anybody else's sessions.
func (s *SessionStore) activeSessions(tx *buntdb.Tx, userId int64) ([]authors.Session, error) {
	sessions := make([]authors.Session, 0, 10)
	var listErr error
	err := tx.Ascend("sessions", func(key, value string) bool {
		var session Session
		if err := json.Unmarshal([]byte(value), &session); err != nil {
			listErr = fmt.Errorf("deserialize session: %w", err)
			return false
		}
		if session.UserId != userId {
			return true
		}
		sessions = append(sessions, session.ToDomain())
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("ascend sessions: %w", err)
	}
	if listErr != nil {
		return nil, listErr
	}
	return sessions, nil
}

func (s *SessionStore) ActiveSessions(token string) ([]authors.Session, error) {
	var sessions []authors.Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		caller, err := sessionByToken(tx, token)
		if err != nil {
			return err
		}
		sessions, err = s.activeSessions(tx, caller.UserId)
		return err
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, authors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("buntdb view: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) AcquireAndRefresh(ctx context.Context, token string, ip string, userAgent string) (authors.Session, error) {
	var previousSession Session
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err error
		previousSession, err = sessionByToken(tx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return authors.Session{}, authors.ErrSessionNotFound
		}
		return authors.Session{}, fmt.Errorf("get session from buntdb: %w", err)
	}

	session := previousSession
	session.Ip = ip
	session.UserAgent = userAgent
	session.LastAccessedAt = time.Now().UTC()
	session.ExpiresAt = time.Now().UTC().Add(sessionTTL)
	serializedSession, err := json.Marshal(session)
	if err != nil {
		return authors.Session{}, fmt.Errorf("serialize session: %w", err)
	}

	err = s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, _, err = tx.Set("session:"+token, string(serializedSession), &buntdb.SetOptions{Expires: true, TTL: sessionTTL})
		if err != nil {
			return fmt.Errorf("store session: %w", err)
		}

		if previousSession.Ip != session.Ip {
			activity := authors.Activity{Name: "session_changed_ip", Data: map[string]interface{}{
				"session_id":  session.Id,
				"previous_ip": previousSession.Ip,
				"new_ip":      session.Ip,
			}}
			if err := s.ActivityStore.AddLog(ctx, authors.UserId(session.UserId), activity); err != nil {
				return fmt.Errorf("log ip change: %w", err)
			}
		}
		if previousSession.UserAgent != session.UserAgent {
			activity := authors.Activity{Name: "session_changed_user_agent", Data: map[string]interface{}{
				"session_id":          session.Id,
				"previous_user_agent": previousSession.UserAgent,
				"new_user_agent":      session.UserAgent,
			}}
			if err := s.ActivityStore.AddLog(ctx, authors.UserId(session.UserId), activity); err != nil {
				return fmt.Errorf("log useragent change: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return authors.Session{}, fmt.Errorf("refresh session in buntdb: %w", err)
	}
	return session.ToDomain(), nil
}

func (s *SessionStore) InvalidateById(userId authors.UserId, sessionId string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		token, err := tx.Get("session_by_id:" + sessionId)
		if err != nil {
			return fmt.Errorf("get session by id: %w", err)
		}
		serializedSession, err := tx.Delete("session:" + token)
		if err != nil {
			return fmt.Errorf("delete session by auth token: %w", err)
		}

		var session Session
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize session: %w", err)
		}
		if userId != authors.UserId(session.UserId) {
			return fmt.Errorf("different user id (required: %d, found: %d)", userId, session.UserId)
		}

		_, err = tx.Delete("session_by_id:" + sessionId)
		if err != nil {
			return fmt.Errorf("delete session by id: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

func (s *SessionStore) InvalidateByAuthToken(authToken string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		serializedSession, err := tx.Delete("session:" + authToken)
		if err != nil {
			return fmt.Errorf("delete session key: %w", err)
		}
		var session Session
		if err := json.Unmarshal([]byte(serializedSession), &session); err != nil {
			return fmt.Errorf("deserialize deleted session: %w", err)
		}
		_, err = tx.Delete("session_by_id:" + session.Id)
		if err != nil {
			return fmt.Errorf("delete session id key: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

func (s *SessionStore) InvalidateAllExcept(exceptToken string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		caller, err := sessionByToken(tx, exceptToken)
		if err != nil {
			return fmt.Errorf("get caller session: %w", err)
		}
		sessions, err := s.activeSessions(tx, caller.UserId)
		if err != nil {
			return fmt.Errorf("ascend sessions: %w", err)
		}
		for _, session := range sessions {
			if session.Token == exceptToken {
				continue
			}
			if _, err := tx.Delete("session_by_id:" + session.Id); err != nil {
				return fmt.Errorf("delete session_by_id: %w", err)
			}
			if _, err := tx.Delete("session:" + session.Token); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

func generateSessionToken() (string, error) {
	const tokenBytes = 60
	rawToken := make([]byte, tokenBytes)
	bytesRead, err := crand.Read(rawToken)
	if err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	if bytesRead != tokenBytes {
		return "", fmt.Errorf("bytes read %d / required %d", bytesRead, tokenBytes)
	}
	dirtyToken := base64.StdEncoding.EncodeToString(rawToken)

	// ":" separates key segments in the bunt store, keep it out of tokens
	// so no token can smuggle a "session:..." prefix into another key.
	return strings.Replace(dirtyToken, ":", "_", -1), nil
}
