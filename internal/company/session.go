package company

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// sessionCompanyKey is the single logical field this core keeps in the
// session: the id of the company the user is currently operating as.
const sessionCompanyKey = "company_id"

// SessionStore reads and writes the current-company pointer of a request's
// session.
type SessionStore interface {
	CurrentCompanyID(r *http.Request) (uuid.UUID, bool)
	SetCurrentCompany(w http.ResponseWriter, r *http.Request, id uuid.UUID) error
	ClearCurrentCompany(w http.ResponseWriter, r *http.Request) error
}

// CookieSessionStore keeps the pointer in an authenticated cookie session.
type CookieSessionStore struct {
	store *sessions.CookieStore
	name  string
}

func NewCookieSessionStore(secret, cookieName string) *CookieSessionStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieSessionStore{store: store, name: cookieName}
}

func (s *CookieSessionStore) CurrentCompanyID(r *http.Request) (uuid.UUID, bool) {
	// A tampered or outdated cookie decodes to a fresh session; both read as
	// "no company selected".
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return uuid.Nil, false
	}
	raw, ok := sess.Values[sessionCompanyKey].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *CookieSessionStore) SetCurrentCompany(w http.ResponseWriter, r *http.Request, id uuid.UUID) error {
	sess, _ := s.store.Get(r, s.name)
	sess.Values[sessionCompanyKey] = id.String()
	return sess.Save(r, w)
}

func (s *CookieSessionStore) ClearCurrentCompany(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, s.name)
	delete(sess.Values, sessionCompanyKey)
	return sess.Save(r, w)
}
