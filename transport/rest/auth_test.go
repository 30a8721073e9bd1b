package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adevtutorials/authors"
	"github.com/adevtutorials/authors/inmem"
	"github.com/adevtutorials/authors/mock"
	"github.com/adevtutorials/authors/persistent"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/buntdb"
)

func newAuthTestApp(t *testing.T) *fiber.App {
	t.Helper()

	bunt, err := buntdb.Open(":memory:")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	t.Cleanup(func() {
		_ = bunt.Close()
	})

	profileStore := inmem.NewProfileStore()
	userStore := inmem.NewUserStore(&profileStore)
	activityStore := inmem.NewActivityStore()
	sessionStore := &persistent.SessionStore{Buntdb: bunt, ActivityStore: &activityStore}
	if !assert.NoError(t, sessionStore.CreateIndexes()) {
		t.FailNow()
	}

	authController := AuthController{
		UserStore:    &userStore,
		SessionStore: sessionStore,
	}
	sessionController := SessionController{Store: sessionStore}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	authController.InstallTo(app)
	sessionController.InstallTo(RequestAuthorizer(sessionStore, &userStore), app)
	return app
}

func postJson(t *testing.T, app *fiber.App, path string, body interface{}, header map[string]string) (*http.Response, string) {
	t.Helper()

	payload, err := json.Marshal(body)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range header {
		req.Header.Set(key, value)
	}
	resp, err := app.Test(req)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	defer resp.Body.Close()
	raw, err := ioutil.ReadAll(resp.Body)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return resp, string(raw)
}

func registerBody(username string) map[string]string {
	return map[string]string{
		"username":  username,
		"firstName": "Test",
		"lastName":  "User",
		"email":     username + "@authors.dev",
		"password":  "s3cret123",
	}
}

func TestRegisterValidation(t *testing.T) {
	assert := assert.New(t)
	app := newAuthTestApp(t)

	cases := []struct {
		name       string
		mutate     func(map[string]string)
		statusCode int
		message    string
	}{
		{
			name:       "missing username",
			mutate:     func(b map[string]string) { b["username"] = "" },
			statusCode: fiber.StatusBadRequest,
			message:    "users must have a username",
		},
		{
			name:       "missing first name",
			mutate:     func(b map[string]string) { b["firstName"] = "" },
			statusCode: fiber.StatusBadRequest,
			message:    "users must have a first name",
		},
		{
			name:       "missing last name",
			mutate:     func(b map[string]string) { b["lastName"] = "" },
			statusCode: fiber.StatusBadRequest,
			message:    "users must have a last name",
		},
		{
			name:       "missing email",
			mutate:     func(b map[string]string) { b["email"] = "" },
			statusCode: fiber.StatusBadRequest,
			message:    "users must have an email address",
		},
		{
			name:       "invalid email",
			mutate:     func(b map[string]string) { b["email"] = "not-an-email" },
			statusCode: fiber.StatusBadRequest,
			message:    "please enter a valid email address",
		},
		{
			name:       "missing password",
			mutate:     func(b map[string]string) { b["password"] = "" },
			statusCode: fiber.StatusBadRequest,
			message:    "users must have a password",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body := registerBody("validation")
			c.mutate(body)
			resp, raw := postJson(t, app, "/auth/register", body, nil)
			assert.Equal(c.statusCode, resp.StatusCode)
			assert.Equal(JsonErrorMessageResponse(c.message), raw)
		})
	}
}

func TestAuthRegisterLoginLogoutFlow(t *testing.T) {
	assert := assert.New(t)
	app := newAuthTestApp(t)

	resp, raw := postJson(t, app, "/auth/register", registerBody("alice"), nil)
	assert.Equal(fiber.StatusCreated, resp.StatusCode)

	var session struct {
		Id          string `json:"id"`
		UserId      int64  `json:"userId"`
		AccessToken string `json:"accessToken"`
		ExpiresAt   int64  `json:"expiresAt"`
	}
	assert.NoError(json.Unmarshal([]byte(raw), &session))
	assert.NotEmpty(session.AccessToken)
	assert.NotZero(session.UserId)

	t.Run("duplicate registration", func(t *testing.T) {
		resp, _ := postJson(t, app, "/auth/register", registerBody("alice"), nil)
		assert.Equal(fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, raw := postJson(t, app, "/auth/login", map[string]string{
			"username": "alice",
			"password": "wrong",
		}, nil)
		assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(JsonErrorMessageResponse("invalid credentials"), raw)
	})

	t.Run("unknown username", func(t *testing.T) {
		resp, raw := postJson(t, app, "/auth/login", map[string]string{
			"username": "nobody",
			"password": "s3cret123",
		}, nil)
		assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(JsonErrorMessageResponse("invalid credentials"), raw)
	})

	var loginToken string
	t.Run("login", func(t *testing.T) {
		resp, raw := postJson(t, app, "/auth/login", map[string]string{
			"username": "alice",
			"password": "s3cret123",
		}, nil)
		assert.Equal(fiber.StatusOK, resp.StatusCode)

		var loginSession struct {
			AccessToken string `json:"accessToken"`
		}
		assert.NoError(json.Unmarshal([]byte(raw), &loginSession))
		assert.NotEmpty(loginSession.AccessToken)
		loginToken = loginSession.AccessToken
	})

	t.Run("authorized session lookup", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/session", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+loginToken)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusOK, resp.StatusCode)
	})

	t.Run("logout invalidates token", func(t *testing.T) {
		resp, _ := postJson(t, app, "/auth/logout", map[string]string{}, map[string]string{
			fiber.HeaderAuthorization: "Bearer " + loginToken,
		})
		assert.Equal(fiber.StatusNoContent, resp.StatusCode)

		req := httptest.NewRequest("GET", "/session", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+loginToken)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing auth header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sessions", nil)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequestAuthorizer(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bunt, err := buntdb.Open(":memory:")
	if !assert.NoError(err) {
		t.FailNow()
	}
	defer bunt.Close()
	activityStore := inmem.NewActivityStore()
	sessionStore := &persistent.SessionStore{Buntdb: bunt, ActivityStore: &activityStore}
	if !assert.NoError(sessionStore.CreateIndexes()) {
		t.FailNow()
	}

	session, err := sessionStore.RegisterNew(ctx, 7, "127.0.0.1", "test-agent")
	assert.NoError(err)

	userStore := mock.UserStore{
		ByIdFn: func(ctx context.Context, userId authors.UserId) (authors.User, error) {
			assert.Equal(authors.UserId(7), userId)
			return authors.User{Id: userId, Username: "alice"}, nil
		},
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/whoami", combineHandlers(RequestAuthorizer(sessionStore, userStore), func(ctx *fiber.Ctx) error {
		user := ctx.Locals(userLocalsKey).(authors.User)
		return ctx.JSON(map[string]interface{}{"username": user.Username})
	}))

	cases := []struct {
		name       string
		header     string
		statusCode int
	}{
		{"valid token", "Bearer " + session.Token, fiber.StatusOK},
		{"unknown token", "Bearer definitely-not-a-token", fiber.StatusUnauthorized},
		{"invalid auth type", "Basic " + session.Token, fiber.StatusBadRequest},
		{"no header", "", fiber.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if c.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, c.header)
			}
			resp, err := app.Test(req)
			if !assert.NoError(err) {
				return
			}
			defer resp.Body.Close()
			assert.Equal(c.statusCode, resp.StatusCode)
		})
	}
}
