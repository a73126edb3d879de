package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/ebfe/scard"
	"github.com/ethereum/go-ethereum/log"

	cardwallet "github.com/hwsdk/cardwallet-go"
	"github.com/hwsdk/cardwallet-go/attestation"
	"github.com/hwsdk/cardwallet-go/pcsc"
	"github.com/hwsdk/cardwallet-go/storage"
	"github.com/hwsdk/cardwallet-go/trust"
)

var (
	logger = log.New("package", "cardwallet-go/cmd/card-attest")

	flagMode           = flag.String("m", "normal", `attestation mode, one of: "offline", "normal", "full"`)
	flagVerifyURL      = flag.String("u", "", "base URL of the online verification service")
	flagTrustDB        = flag.String("db", "", "path of the trust cache database (in-memory when empty)")
	flagAllowUntrusted = flag.Bool("allow-untrusted", false, "let failed verdicts fall through to a user decision")
	flagLogLevel       = flag.String("l", "", `Log level, one of: "ERROR", "WARN", "INFO", "DEBUG", and "TRACE"`)
)

func initLogger() {
	if *flagLogLevel == "" {
		*flagLogLevel = "info"
	}

	level, err := log.LvlFromString(strings.ToLower(*flagLogLevel))
	if err != nil {
		stdlog.Fatal(err)
	}

	handler := log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	filteredHandler := log.LvlFilterHandler(level, handler)
	log.Root().SetHandler(filteredHandler)
}

func parseMode(s string) (cardwallet.AttestationMode, error) {
	switch s {
	case "offline":
		return cardwallet.ModeOffline, nil
	case "normal":
		return cardwallet.ModeNormal, nil
	case "full":
		return cardwallet.ModeFull, nil
	}
	return 0, fmt.Errorf("unknown attestation mode %q", s)
}

func fail(msg string, ctx ...interface{}) {
	logger.Error(msg, ctx...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	initLogger()

	mode, err := parseMode(*flagMode)
	if err != nil {
		fail("bad flags", "error", err)
	}

	scardCtx, err := scard.EstablishContext()
	if err != nil {
		fail("cannot establish smart card context", "error", err)
	}
	defer scardCtx.Release()

	readers, err := scardCtx.ListReaders()
	if err != nil {
		fail("cannot list readers", "error", err)
	}
	logger.Info("waiting for card", "readers", len(readers))
	index, err := pcsc.WaitForCard(scardCtx, readers)
	if err != nil {
		fail("waiting for card failed", "error", err)
	}

	transport := pcsc.NewTransport(scardCtx, readers[index])

	env := cardwallet.NewSessionEnvironment(cardwallet.Config{
		AttestationMode:     mode,
		AllowUntrustedCards: *flagAllowUntrusted,
	})
	session, err := cardwallet.NewSession(transport, env)
	if err != nil {
		fail("cannot create session", "error", err)
	}

	ctx := context.Background()

	read := cardwallet.NewReadCommand()
	if err := session.Run(ctx, read); err != nil {
		fail("reading card failed", "error", err)
	}
	session.SetCard(read.Card)
	logger.Info("card read", "cid", read.Card.CardID, "firmware", read.Card.FirmwareVersion.String(), "wallets", len(read.Card.Wallets))

	var store storage.Storage
	if *flagTrustDB != "" {
		db, err := storage.OpenSQLite(*flagTrustDB)
		if err != nil {
			fail("cannot open trust database", "error", err)
		}
		defer db.Close()
		store = db
	}

	var verifier attestation.Verifier
	if *flagVerifyURL != "" {
		verifier = attestation.NewHTTPVerifier(*flagVerifyURL)
	}

	task := attestation.NewTask(session, verifier, &consolePrompt{}, trust.NewCache(store))
	verdict, err := task.Run(ctx)
	if err != nil {
		fail("attestation failed", "error", err)
	}

	logger.Info("attestation finished",
		"status", verdict.Status().String(),
		"cardKey", verdict.CardKey.String(),
		"walletKeys", verdict.WalletKeys.String(),
	)
}

// consolePrompt answers the attestation prompts from stdin.
type consolePrompt struct{}

func ask(question string, choices string) string {
	fmt.Printf("%s [%s]: ", question, choices)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(answer))
}

func (p *consolePrompt) AttestationDidFail(onContinue func(), onCancel func()) {
	if ask("card could not be verified, continue anyway?", "y/N") == "y" {
		onContinue()
		return
	}
	onCancel()
}

func (p *consolePrompt) AttestationCompletedOffline(onContinue func(), onCancel func(), onRetry func()) {
	switch ask("card verified offline only; accept, retry online or cancel?", "a/r/C") {
	case "a":
		onContinue()
	case "r":
		onRetry()
	default:
		onCancel()
	}
}

func (p *consolePrompt) AttestationCompletedWithWarnings(onContinue func()) {
	fmt.Println("card verified with warnings: unusually high wallet activity")
	onContinue()
}
