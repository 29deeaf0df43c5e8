// Package cli implements the interactive emoticons client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/emoticons/internal/client/apiclient"
	"github.com/dmitrijs2005/emoticons/internal/client/config"
)

// api is the subset of apiclient.Client the commands use.
type api interface {
	Register(ctx context.Context, username, password string) (*apiclient.User, string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, token string) (*apiclient.User, error)
	Fetch(ctx context.Context, token, key string) (string, error)
	Download(ctx context.Context, location string, w io.Writer) (int64, error)
}

type App struct {
	config   *config.Config
	client   api
	token    string
	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: apiclient.New(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Run reads commands from stdin until EOF or "exit".
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "Connected to %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
