// Package main は /user API を呼び出すコマンドラインクライアントです。
//
// 使い方:
//
//	client signup -name Ann -email ann@example.com -password pw
//	client login -email ann@example.com -password pw
//	client forgot -email ann@example.com
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yourusername/userportal/internal/apiclient"
	"github.com/yourusername/userportal/internal/config"
	"github.com/yourusername/userportal/internal/dto"
	"github.com/yourusername/userportal/internal/logger"
)

// sessionCookie はログイン後にクライアント側で保存するクッキー名です。
const sessionCookie = "session"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	action := os.Args[1]

	fs := flag.NewFlagSet(action, flag.ExitOnError)
	name := fs.String("name", "", "display name (signup)")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (signup, login)")
	days := fs.Float64("days", 1, "session cookie lifetime in days (login)")
	baseURL := fs.String("base-url", "", "override API_BASE_URL")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to set log level: %v", err)
	}

	base := cfg.APIBaseURL
	if *baseURL != "" {
		base = *baseURL
	}
	jar, err := apiclient.NewJarStore(base)
	if err != nil {
		log.Fatalf("Failed to create cookie store: %v", err)
	}

	client := apiclient.New(
		apiclient.WithBaseURL(base),
		apiclient.WithTimeout(cfg.ClientTimeout()),
		apiclient.WithCookieStore(jar),
		apiclient.WithLogger(logger.Named("client")),
	)

	ctx := context.Background()
	switch action {
	case "signup":
		err = runSignup(ctx, client, *name, *email, *password)
	case "login":
		err = runLogin(ctx, client, *email, *password, *days)
	case "forgot":
		err = client.ForgotPassword(ctx, *email, printResult)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		os.Exit(1)
	}
}

func runSignup(ctx context.Context, client *apiclient.Client, name, email, password string) error {
	result, err := client.Signup(ctx, name, email, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "signup failed:", err)
		return err
	}
	printResult(result)
	return nil
}

func runLogin(ctx context.Context, client *apiclient.Client, email, password string, days float64) error {
	raw, err := client.Login(ctx, email, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		return err
	}

	var result dto.LoginResult
	if _, err := apiclient.DecodeEnvelope(raw, &result); err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		return err
	}
	if result.Token == "" {
		err := errors.New("login response has no token")
		fmt.Fprintln(os.Stderr, "login failed:", err)
		return err
	}

	client.SetSession(sessionCookie, result.Token, days)
	printResult(raw)
	return nil
}

func printResult(result json.RawMessage) {
	var out any
	if err := json.Unmarshal(result, &out); err != nil {
		fmt.Println(string(result))
		return
	}
	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(string(pretty))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: client <signup|login|forgot> [flags]")
}
