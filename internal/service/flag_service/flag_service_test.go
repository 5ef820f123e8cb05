package flag_service_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/flag_service"
)

func TestMain(m *testing.M) {
	// setup
	fmt.Println("starting initializations")

	// logger
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
		PadLevelText:  false,
	})
	logrus.SetLevel(logrus.DebugLevel)

	logrus.Info("initializing service")
	service.InitializeServices()

	logrus.Info("starting tests")
	code := m.Run()

	logrus.Info("tests completed")
	os.Exit(code)
}

func TestMintDynamicFlagFormat(t *testing.T) {
	fs := flag_service.FlagService{}
	challenge := database.Challenge{
		ChallengeName: "heap-note",
		IsDynamicFlag: true,
	}

	flags, err := fs.MintFlags(challenge)
	if err != nil {
		t.Fatalf("minting failed: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}

	flag := flags[0]
	if !strings.HasPrefix(flag, flag_service.DefaultFlagPrefix+"{") || !strings.HasSuffix(flag, "}") {
		t.Errorf("flag %q does not match the expected envelope", flag)
	}

	body := strings.TrimSuffix(strings.TrimPrefix(flag, flag_service.DefaultFlagPrefix+"{"), "}")
	if len(body) != 48 {
		t.Errorf("flag body %q has length %d, expected 48 hex chars", body, len(body))
	}
	for _, c := range body {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("flag body %q contains non-hex char %q", body, c)
			break
		}
	}
}

func TestMintDynamicFlagsAreUnique(t *testing.T) {
	fs := flag_service.FlagService{}
	challenge := database.Challenge{
		ChallengeName: "heap-note",
		IsDynamicFlag: true,
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		flags, err := fs.MintFlags(challenge)
		if err != nil {
			t.Fatalf("minting failed: %v", err)
		}
		if seen[flags[0]] {
			t.Fatalf("flag %q was minted twice", flags[0])
		}
		seen[flags[0]] = true
	}
}

func TestMintCustomPrefixAndCount(t *testing.T) {
	fs := flag_service.FlagService{
		Prefix:           "OtherCTF",
		FlagsPerInstance: 3,
	}
	challenge := database.Challenge{
		ChallengeName: "multi-stage",
		IsDynamicFlag: true,
	}

	flags, err := fs.MintFlags(challenge)
	if err != nil {
		t.Fatalf("minting failed: %v", err)
	}
	if len(flags) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(flags))
	}
	for _, flag := range flags {
		if !strings.HasPrefix(flag, "OtherCTF{") {
			t.Errorf("flag %q does not carry the configured prefix", flag)
		}
	}
}

func TestMintStaticFlag(t *testing.T) {
	staticFlag := "FloatCTF{the_same_for_everyone}"
	fs := flag_service.FlagService{}
	challenge := database.Challenge{
		ChallengeName: "warmup",
		IsDynamicFlag: false,
		StaticFlag:    &staticFlag,
	}

	flags, err := fs.MintFlags(challenge)
	if err != nil {
		t.Fatalf("minting failed: %v", err)
	}
	if len(flags) != 1 || flags[0] != staticFlag {
		t.Errorf("expected the definition's flag back, got %v", flags)
	}
}

func TestMintStaticWithoutFlagFails(t *testing.T) {
	fs := flag_service.FlagService{}
	challenge := database.Challenge{
		ChallengeName: "misconfigured",
		IsDynamicFlag: false,
	}

	if _, err := fs.MintFlags(challenge); err == nil {
		t.Error("expected an error for a static challenge without a flag")
	}
}

func TestMatchesIsExact(t *testing.T) {
	flags := []database.InstanceFlag{
		{Flag: "FloatCTF{abc123}"},
		{Flag: "FloatCTF{def456}"},
	}

	if !flag_service.Matches("FloatCTF{def456}", flags) {
		t.Error("exact flag was not matched")
	}
	if flag_service.Matches("FloatCTF{DEF456}", flags) {
		t.Error("matching must be case sensitive")
	}
	if flag_service.Matches(" FloatCTF{abc123}", flags) {
		t.Error("matching must not trim whitespace")
	}
	if flag_service.Matches("FloatCTF{abc}", nil) {
		t.Error("empty flag set matched a submission")
	}
}
