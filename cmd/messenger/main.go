package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"zinka/composer"
	"zinka/contract"
	"zinka/domain"
	"zinka/identity"
	"zinka/infrastructure/authx"
	"zinka/infrastructure/store"
	"zinka/internal"
	"zinka/registry"
	"zinka/runtime"
	"zinka/services"
	"zinka/stream"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Messenger terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, drives the REPL, and centralizes error
// reporting, so deferred cleanups execute before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	cliConfig, err := LoadCLIConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("cli config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Collaborators + sync core
	docs := store.NewBadgerStore(db, logger, config.NotificationBuffer)
	auth := authx.NewTokenAuthenticator([]byte(config.TokenSecret), config.AuthTokenDuration, logger)
	paths := contract.NewPaths(config.AppID)

	directory := identity.NewUsernameDirectory(docs, paths, logger)
	ids := identity.NewIdentityStore(auth, docs, directory, paths, logger)
	if config.BootstrapToken != "" {
		ids.WithBootstrapToken(config.BootstrapToken)
	}
	chats := registry.NewChatRegistry(docs, paths, logger)
	messages := stream.NewMessageStream(docs, paths, ids, logger)
	chatComposer := composer.NewChatComposer(docs, paths, ids, logger)

	orchestrator := runtime.NewOrchestrator(logger, ids, chats, messages)
	orchestrator.NotifyFailures(func(err error) {
		color.Warn.Printf("sync: %v\n", err)
	})
	service := services.NewMessengerService(orchestrator, ids, directory, chats, messages, chatComposer)

	messages.OnChange(func(list []domain.Message) {
		renderMessages(cliConfig, service, list)
	})

	orchestrator.Start(ctx)
	defer orchestrator.Stop()

	if ids.NewlyBootstrapped() {
		color.Info.Printf("Welcome! Your username is @%s — edit it with /name and /username.\n", service.Profile().Username)
	}

	return repl(ctx, cliConfig, service)
}

func repl(ctx context.Context, cfg CLIConfig, service services.IMessengerService) (int, error) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(cfg.Prompt)
		if !scanner.Scan() {
			return exitOK, scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := service.SendMessage(ctx, line); err != nil {
				color.Error.Println(err)
			}
			continue
		}
		if quit := command(ctx, cfg, service, line); quit {
			return exitOK, nil
		}
	}
}

func command(ctx context.Context, cfg CLIConfig, service services.IMessengerService, line string) bool {
	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "/quit":
		return true
	case "/chats":
		renderChats(service)
	case "/open":
		if err := service.SelectChat(arg); err != nil {
			color.Error.Println(err)
		}
	case "/search":
		results, err := service.Search(ctx, arg)
		if err != nil {
			color.Error.Println(err)
			break
		}
		if len(results) == 0 {
			fmt.Println("No results")
			break
		}
		for _, user := range results {
			fmt.Printf("%s (@%s) — %s\n", user.FullName(), user.Username, user.PrincipalID)
		}
	case "/chat":
		results, err := service.Search(ctx, arg)
		if err != nil || len(results) == 0 {
			color.Error.Println("No such user")
			break
		}
		if _, err := service.StartPrivateChat(ctx, results[0]); err != nil {
			color.Error.Println(err)
		}
	case "/group", "/channel":
		kind := domain.ChatKind(strings.TrimPrefix(fields[0], "/"))
		if _, err := service.CreateGroupOrChannel(ctx, arg, "", kind); err != nil {
			color.Error.Println(err)
		}
	case "/username", "/name", "/bio":
		profile := service.Profile()
		switch fields[0] {
		case "/username":
			profile.Username = arg
		case "/name":
			profile.FirstName = arg
		case "/bio":
			profile.Bio = arg
		}
		if _, err := service.SaveProfile(ctx, profile); err != nil {
			color.Error.Println(err)
		}
	case "/hide", "/show":
		profile := service.Profile()
		profile.Privacy.Searchable = fields[0] == "/show"
		if _, err := service.SaveProfile(ctx, profile); err != nil {
			color.Error.Println(err)
		}
	case "/whoami":
		profile := service.Profile()
		fmt.Printf("%s (@%s) — %s\n", profile.FullName(), profile.Username, service.Session().PrincipalID)
	case "/logout":
		if err := service.SignOut(ctx); err != nil {
			color.Error.Println(err)
		}
	default:
		fmt.Println("Commands: /chats /open <id> /search <user> /chat <user> /group <name> /channel <name> /username /name /bio /hide /show /whoami /logout /quit")
	}
	return false
}

func renderChats(service services.IMessengerService) {
	viewer := service.Session().PrincipalID
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Chat", "Last message", "At"})
	for _, chat := range service.Chats() {
		at := ""
		if chat.Timestamp != nil {
			at = chat.Timestamp.Local().Format("15:04")
		}
		table.Append([]string{chat.ID, chat.DisplayName(viewer), chat.LastMessage, at})
	}
	table.Render()
}

func renderMessages(cfg CLIConfig, service services.IMessengerService, list []domain.Message) {
	me := service.Session().PrincipalID
	for _, msg := range list {
		at := "..."
		if msg.Timestamp != nil {
			at = msg.Timestamp.Local().Format("15:04")
		}
		line := fmt.Sprintf("[%s] @%s: %s", at, msg.SenderUsername, msg.Text)
		if !cfg.Colours {
			fmt.Println(line)
			continue
		}
		if msg.Sender == me {
			color.Cyan.Println(line)
		} else {
			color.Green.Println(line)
		}
	}
}
