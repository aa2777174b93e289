package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bodyforce/admin-api/internal/platform/auth/tokens"
	"github.com/bodyforce/admin-api/internal/platform/config"
)

// Dev-only session token minter.
//
// It signs tokens with the same AUTH_SECRET and AUTH_ISSUER as the API so that
// scripts and the badge terminal can call protected routes without signing in.

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	authCfg, err := config.LoadAuthConfigFromEnv()
	if err != nil {
		log.Fatalf("auth config: %v", err)
	}
	if len(authCfg.Secret) == 0 {
		log.Fatal("AUTH_SECRET is required to mint tokens")
	}
	port := getenv("PORT", "5556")
	tm := tokens.New(authCfg)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a token:
	//   GET /token?sub=admin-1&role=admin
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		role := strings.TrimSpace(r.URL.Query().Get("role"))
		switch role {
		case "":
			role = "admin"
		case "admin", "member", "terminal":
		default:
			http.Error(w, "role must be admin, member or terminal", http.StatusBadRequest)
			return
		}

		token, exp, err := tm.Issue(sub, role)
		if err != nil {
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":     token,
			"sub":       sub,
			"role":      role,
			"iss":       authCfg.Issuer,
			"expiresAt": exp.Format(time.RFC3339),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("devtoken listening on :%s (iss=%s ttl=%s)", port, authCfg.Issuer, authCfg.TokenTTL)
	log.Fatal(srv.ListenAndServe())
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
