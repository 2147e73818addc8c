package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	hashes        map[string]string // email -> password hash
	ids           map[string]int64  // email -> user id
	usersByID     map[int64]*User
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.DefaultCost)

	return &mockUserRepository{
		hashes: map[string]string{
			"ana@example.com":   string(hashedPassword),
			"bruno@example.com": string(hashedPassword),
		},
		ids: map[string]int64{
			"ana@example.com":   1,
			"bruno@example.com": 2,
		},
		usersByID: map[int64]*User{
			1: {ID: 1, Email: "ana@example.com", Name: "Ana", IsActive: true},
			2: {ID: 2, Email: "bruno@example.com", Name: "Bruno", IsActive: false},
		},
	}
}

func (m *mockUserRepository) GetCredentialsByEmail(email string) (string, int64, error) {
	if m.returnError {
		return "", 0, m.errorToReturn
	}

	if hash, exists := m.hashes[email]; exists {
		return hash, m.ids[email], nil
	}
	return "", 0, errors.New("user not found")
}

func (m *mockUserRepository) GetUserByID(userID int64) (*User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}

	if user, exists := m.usersByID[userID]; exists {
		return user, nil
	}
	return nil, errors.New("user not found")
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service       *Service
		mockRepo      *mockUserRepository
		tokenGen      *JWTTokenGenerator
		accessSecret  string        = "test-access-secret"
		refreshSecret string        = "test-refresh-secret"
		accessTTL     time.Duration = 15 * time.Minute
		refreshTTL    time.Duration = 24 * time.Hour
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, accessTTL, refreshTTL)
		service = NewService(mockRepo, tokenGen, bcrypt.DefaultCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return access and refresh tokens", func() {
				dto := LoginDTO{
					Email:    "ana@example.com",
					Password: "correct_password",
				}

				tokens, err := service.Authenticate(dto)

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
			})

			ginkgo.It("should generate valid JWT tokens", func() {
				dto := LoginDTO{
					Email:    "ana@example.com",
					Password: "correct_password",
				}

				tokens, err := service.Authenticate(dto)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				claims, err := service.ValidateAccessToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.UserID).To(gomega.Equal(int64(1)))
				gomega.Expect(claims.Email).To(gomega.Equal("ana@example.com"))
			})

			ginkgo.It("should accept a differently cased email", func() {
				dto := LoginDTO{
					Email:    "Ana@Example.com",
					Password: "correct_password",
				}

				_, err := service.Authenticate(dto)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return error for an unknown email", func() {
				dto := LoginDTO{
					Email:    "nonexistent@example.com",
					Password: "any_password",
				}

				tokens, err := service.Authenticate(dto)

				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
				gomega.Expect(tokens.AccessToken).To(gomega.BeEmpty())
			})

			ginkgo.It("should return error for a wrong password", func() {
				dto := LoginDTO{
					Email:    "ana@example.com",
					Password: "wrong_password",
				}

				_, err := service.Authenticate(dto)
				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})

			ginkgo.It("should not leak repository errors", func() {
				mockRepo.returnError = true
				mockRepo.errorToReturn = errors.New("connection refused")

				dto := LoginDTO{
					Email:    "ana@example.com",
					Password: "correct_password",
				}

				_, err := service.Authenticate(dto)
				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should issue a new pair from a valid refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "ana@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(refreshed.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(refreshed.RefreshToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should reject garbage tokens", func() {
			_, err := service.RefreshTokens("not-a-token")
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})

	ginkgo.Describe("GetUser", func() {
		ginkgo.It("should return an active user", func() {
			u, err := service.GetUser(1)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(u.Email).To(gomega.Equal("ana@example.com"))
		})

		ginkgo.It("should refuse an inactive user", func() {
			_, err := service.GetUser(2)
			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})
	})

	ginkgo.Describe("HashPassword", func() {
		ginkgo.It("should produce a verifiable bcrypt hash", func() {
			hash, err := service.HashPassword("s3cret-password")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-password"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})
	})
})
