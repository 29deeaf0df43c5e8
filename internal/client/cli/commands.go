package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/emoticons/internal/client/apiclient"
)

func (a *App) credentials() (string, string, error) {
	userName, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", "", err
	}
	return userName, password, nil
}

func (a *App) report(err error) error {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		fmt.Fprintln(a.out, "error: not authorized")
	case errors.Is(err, apiclient.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "error: login first")
	default:
		fmt.Fprintf(a.out, "error: %v\n", err)
	}
	return err
}

func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return a.report(err)
	}

	u, token, err := a.client.Register(ctx, userName, password)
	if err != nil {
		return a.report(err)
	}

	a.token, a.userName = token, u.Username
	fmt.Fprintf(a.out, "Registered %s (id %d)\n", u.Username, u.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return a.report(err)
	}

	token, err := a.client.Login(ctx, userName, password)
	if err != nil {
		return a.report(err)
	}

	a.token, a.userName = token, userName
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.client.Me(ctx, a.token)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s (id %d)\n", u.Username, u.ID)
	return nil
}

// Fetch resolves key and prints the location of the stored image. When path
// is set the image is also downloaded there.
func (a *App) Fetch(ctx context.Context, key, path string) error {
	location, err := a.client.Fetch(ctx, a.token, key)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, location)

	if path == "" {
		return nil
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return a.report(err)
	}
	defer f.Close()

	n, err := a.client.Download(ctx, location, f)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "saved %d bytes to %s\n", n, path)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.token, a.userName = "", ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
