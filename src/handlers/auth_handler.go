package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 168 * time.Hour

// Login exchanges the admin password for a signed API token.
func Login(passwordHash, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
			log.Printf("ERROR: Failed to decode login request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if passwordHash == "" || jwtSecret == "" {
			log.Printf("ERROR: Login attempted but ADMIN_PASSWORD_HASH or JWT_SECRET is not set")
			http.Error(w, "login is disabled", http.StatusServiceUnavailable)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(credentials.Password)); err != nil {
			log.Printf("ERROR: Invalid password attempt from IP %s", r.RemoteAddr)
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "admin",
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(tokenLifetime).Unix(),
		})
		tokenString, err := token.SignedString([]byte(jwtSecret))
		if err != nil {
			log.Printf("ERROR: Failed to generate JWT token: %v", err)
			http.Error(w, "Error generating token", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Successful login from IP %s", r.RemoteAddr)
		writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
	}
}

// HashPassword produces the bcrypt hash expected in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
