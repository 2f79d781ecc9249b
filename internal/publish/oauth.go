package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// oauthClient builds an authorized HTTP client from client secrets,
// reusing a cached token when one exists. Without a cached token the
// user is sent to the consent URL and pastes the code back in.
func oauthClient(ctx context.Context, secretsPath, tokenPath string) (*http.Client, error) {
	secrets, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets: %w", err)
	}

	config, err := google.ConfigFromJSON(
		secrets,
		youtube.YoutubeUploadScope,
		youtube.YoutubeScope,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		token, err = tokenFromConsent(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	}

	return config.Client(ctx, token), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to parse cached token: %w", err)
	}
	return token, nil
}

func tokenFromConsent(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser and authorize the application:\n%v\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to write oauth token: %w", err)
	}
	return nil
}
