package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// EnvCredentialsFile names the JSON file consulted for any credential missing from the environment.
const EnvCredentialsFile = "LIME_CREDENTIALS_FILE"

// Credentials holds the OAuth2 password-grant secrets and endpoints for the broker.
type Credentials struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	AuthURL       string `json:"auth_url"`
	BaseURL       string `json:"base_url"`
	AccountNumber string `json:"account_number"`
}

var credentialEnv = []struct {
	env string
	set func(*Credentials, string)
	get func(*Credentials) string
}{
	{"LIME_CLIENT_ID", func(c *Credentials, v string) { c.ClientID = v }, func(c *Credentials) string { return c.ClientID }},
	{"LIME_CLIENT_SECRET", func(c *Credentials, v string) { c.ClientSecret = v }, func(c *Credentials) string { return c.ClientSecret }},
	{"LIME_USERNAME", func(c *Credentials, v string) { c.Username = v }, func(c *Credentials) string { return c.Username }},
	{"LIME_PASSWORD", func(c *Credentials, v string) { c.Password = v }, func(c *Credentials) string { return c.Password }},
	{"LIME_AUTH_URL", func(c *Credentials, v string) { c.AuthURL = v }, func(c *Credentials) string { return c.AuthURL }},
	{"LIME_BASE_URL", func(c *Credentials, v string) { c.BaseURL = v }, func(c *Credentials) string { return c.BaseURL }},
	{"LIME_ACCOUNT_NUMBER", func(c *Credentials, v string) { c.AccountNumber = v }, func(c *Credentials) string { return c.AccountNumber }},
}

// LoadCredentials reads LIME_* variables (after a best-effort .env load), fills gaps from the JSON
// credentials file, then from the broker section of the config. Missing required fields are an error.
func LoadCredentials(broker Broker) (*Credentials, error) {
	_ = godotenv.Load() // best-effort

	var creds Credentials
	for _, field := range credentialEnv {
		if v := strings.TrimSpace(os.Getenv(field.env)); v != "" {
			field.set(&creds, v)
		}
	}

	path := os.Getenv(EnvCredentialsFile)
	if path == "" {
		path = "credentials.json"
	}
	fromFile, err := readCredentialsFile(path)
	if err != nil {
		return nil, err
	}
	for _, field := range credentialEnv {
		if field.get(&creds) == "" {
			field.set(&creds, field.get(fromFile))
		}
	}
	if creds.AuthURL == "" {
		creds.AuthURL = broker.AuthURL
	}
	if creds.BaseURL == "" {
		creds.BaseURL = broker.BaseURL
	}

	var missing []string
	for _, field := range credentialEnv {
		if field.env == "LIME_ACCOUNT_NUMBER" {
			continue
		}
		if field.get(&creds) == "" {
			missing = append(missing, field.env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing broker credentials: set %s or provide them in %s", strings.Join(missing, ", "), path)
	}
	creds.AuthURL = strings.TrimSuffix(creds.AuthURL, "/")
	creds.BaseURL = strings.TrimSuffix(creds.BaseURL, "/")
	return &creds, nil
}

func readCredentialsFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	// keys are normalised to lower case so CLIENT_ID and client_id both work
	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	lowered := make(map[string]string, len(raw))
	for k, v := range raw {
		lowered[strings.ToLower(k)] = v
	}
	normalised, _ := json.Marshal(lowered)
	var creds Credentials
	if err := json.Unmarshal(normalised, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return &creds, nil
}

// ResolveAccount picks the order account: an explicit override, then the credential value,
// then the demo account derived from the username.
func (c *Credentials) ResolveAccount(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.AccountNumber != "" {
		return c.AccountNumber, nil
	}
	user, _, ok := strings.Cut(c.Username, "@")
	if !ok || user == "" {
		return "", fmt.Errorf("cannot derive account number from username %q; set LIME_ACCOUNT_NUMBER or trading.account_number", c.Username)
	}
	return user + "@demo", nil
}
