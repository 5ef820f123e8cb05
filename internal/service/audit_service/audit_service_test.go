package audit_service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/user_service"
	"github.com/FloatCTF/cdm/internal/testutil"
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

func newAuditService(store *testutil.MemStore) *audit_service.AuditService {
	return &audit_service.AuditService{
		DB:                store,
		UserServiceConfig: &user_service.UserService{DB: store},
	}
}

func TestAppendAndReadBack(t *testing.T) {
	store := testutil.NewMemStore()
	audit := newAuditService(store)
	admin := store.SeedUser("oak", nil, string(user_service.RoleAdmin))
	team := store.SeedTeam("team-rocket", false)

	for _, action := range []database.ActionType{
		database.ActionStart,
		database.ActionSubmit,
		database.ActionDestroy,
	} {
		if err := audit.Append(context.Background(), audit_service.Record{
			ActionType: action,
			TeamID:     &team.ID,
			Detail:     "lifecycle trace",
		}); err != nil {
			t.Fatalf("append %v failed: %v", action, err)
		}
	}

	entries, err := audit.GetLogs(testutil.ContextWithUser(admin), audit_service.LogFilter{})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// newest first
	if entries[0].ActionType != database.ActionDestroy {
		t.Errorf("expected the destroy entry first, got %v", entries[0].ActionType)
	}
}

func TestGetLogsFiltersByAction(t *testing.T) {
	store := testutil.NewMemStore()
	audit := newAuditService(store)
	admin := store.SeedUser("oak", nil, string(user_service.RoleAdmin))

	for i := 0; i < 3; i++ {
		if err := audit.Append(context.Background(), audit_service.Record{
			ActionType: database.ActionSubmit,
			Detail:     "graded",
		}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if err := audit.Append(context.Background(), audit_service.Record{
		ActionType: database.ActionStart,
		Detail:     "requested",
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	action := database.ActionSubmit
	entries, err := audit.GetLogs(
		testutil.ContextWithUser(admin),
		audit_service.LogFilter{ActionType: &action},
	)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 submit entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.ActionType != database.ActionSubmit {
			t.Errorf("filter leaked a %v entry", entry.ActionType)
		}
	}
}

func TestAppendRejectsUnknownAction(t *testing.T) {
	store := testutil.NewMemStore()
	audit := newAuditService(store)

	err := audit.Append(context.Background(), audit_service.Record{
		ActionType: database.ActionType("format_disk"),
	})
	if err == nil {
		t.Error("unknown action type must be rejected")
	}
}

func TestGetLogsIsAdminOnly(t *testing.T) {
	store := testutil.NewMemStore()
	audit := newAuditService(store)
	team := store.SeedTeam("team-rocket", false)
	player := store.SeedUser("jessie", &team.ID, string(user_service.RolePlayer))

	_, err := audit.GetLogs(testutil.ContextWithUser(player), audit_service.LogFilter{})
	if !errors.Is(err, ctf_errors.ErrUnAuthorized) {
		t.Errorf("players must not read the ledger, got %v", err)
	}
}
