package submission_service_test

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/challenge_service"
	"github.com/FloatCTF/cdm/internal/service/scoreboard_service"
	"github.com/FloatCTF/cdm/internal/service/submission_service"
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

type harness struct {
	store       *testutil.MemStore
	submissions *submission_service.SubmissionService
}

func newHarness() *harness {
	store := testutil.NewMemStore()
	us := &user_service.UserService{DB: store}
	return &harness{
		store: store,
		submissions: &submission_service.SubmissionService{
			DB:                     store,
			UserServiceConfig:      us,
			ChallengeServiceConfig: &challenge_service.ChallengeService{DB: store},
			AuditServiceConfig: &audit_service.AuditService{
				DB:                store,
				UserServiceConfig: us,
			},
			ScoreboardServiceConfig: &scoreboard_service.ScoreboardService{DB: store},
		},
	}
}

// seedRunningInstance builds a team with one user and a running instance
// whose single flag is returned.
func seedRunningInstance(
	t *testing.T,
	h *harness,
	teamName string,
	userName string,
	challenge database.Challenge,
) (database.User, string) {
	t.Helper()

	team := h.store.SeedTeam(teamName, false)
	user := h.store.SeedUser(userName, &team.ID, string(user_service.RolePlayer))

	flag := fmt.Sprintf("FloatCTF{%s_%s}", teamName, challenge.ChallengeName)
	instance, err := h.store.CreateInstanceWithFlags(
		testutil.ContextWithUser(user),
		database.CreateInstanceParams{
			TeamID:      team.ID,
			ChallengeID: challenge.ID,
			RequestedBy: user.ID,
			EndAt:       time.Now().Add(time.Hour),
		},
		[]string{flag},
	)
	if err != nil {
		t.Fatalf("cannot seed instance: %v", err)
	}
	if _, err := h.store.MarkInstanceRunning(
		testutil.ContextWithUser(user),
		database.MarkInstanceRunningParams{ID: instance.ID, Endpoint: "ctf.example.org:31337"},
	); err != nil {
		t.Fatalf("cannot mark seeded instance running: %v", err)
	}
	return user, flag
}

func TestSubmitCorrectFlag(t *testing.T) {
	h := newHarness()
	challenge := h.store.SeedChallenge(database.Challenge{
		ChallengeName: "heap-note",
		Points:        500,
		IsDynamicFlag: true,
		TtlSeconds:    3600,
	})
	user, flag := seedRunningInstance(t, h, "team-rocket", "jessie", challenge)

	result, err := h.submissions.SubmitFlag(
		testutil.ContextWithUser(user),
		submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: flag},
	)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !result.Correct || result.AlreadySolved {
		t.Errorf("expected a fresh correct result, got %+v", result)
	}
	if result.PointsAwarded != 500 {
		t.Errorf("expected 500 points awarded, got %d", result.PointsAwarded)
	}
	if score := h.store.TeamScore(*user.TeamID); score != 500 {
		t.Errorf("team score must be 500, got %d", score)
	}
	if h.store.SubmissionCount() != 1 {
		t.Errorf("expected 1 recorded submission, got %d", h.store.SubmissionCount())
	}
}

func TestSubmitWrongFlagIsRecorded(t *testing.T) {
	h := newHarness()
	challenge := h.store.SeedChallenge(database.Challenge{
		ChallengeName: "heap-note",
		Points:        500,
		IsDynamicFlag: true,
		TtlSeconds:    3600,
	})
	user, _ := seedRunningInstance(t, h, "team-rocket", "jessie", challenge)

	result, err := h.submissions.SubmitFlag(
		testutil.ContextWithUser(user),
		submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: "FloatCTF{nope}"},
	)
	if err != nil {
		t.Fatalf("a wrong flag is not an error: %v", err)
	}
	if result.Correct {
		t.Error("wrong flag graded correct")
	}
	if h.store.SubmissionCount() != 1 {
		t.Errorf("wrong attempt must still be recorded, got %d submissions", h.store.SubmissionCount())
	}
	if h.store.SolveCount() != 0 {
		t.Errorf("wrong attempt must not create a solve, got %d", h.store.SolveCount())
	}
	if score := h.store.TeamScore(*user.TeamID); score != 0 {
		t.Errorf("wrong attempt must not score, team has %d", score)
	}
}

func TestSubmitWithoutRunningInstance(t *testing.T) {
	h := newHarness()
	challenge := h.store.SeedChallenge(database.Challenge{
		ChallengeName: "heap-note",
		Points:        500,
		IsDynamicFlag: true,
		TtlSeconds:    3600,
	})
	team := h.store.SeedTeam("team-rocket", false)
	user := h.store.SeedUser("jessie", &team.ID, string(user_service.RolePlayer))

	_, err := h.submissions.SubmitFlag(
		testutil.ContextWithUser(user),
		submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: "FloatCTF{x}"},
	)
	if !errors.Is(err, ctf_errors.ErrNoActiveInstance) {
		t.Errorf("grading without a running instance must fail, got %v", err)
	}
	if h.store.SubmissionCount() != 0 {
		t.Errorf("nothing to grade against, nothing recorded, got %d", h.store.SubmissionCount())
	}
}

func TestRepeatSolveScoresNothing(t *testing.T) {
	h := newHarness()
	challenge := h.store.SeedChallenge(database.Challenge{
		ChallengeName: "heap-note",
		Points:        500,
		IsDynamicFlag: true,
		TtlSeconds:    3600,
	})
	user, flag := seedRunningInstance(t, h, "team-rocket", "jessie", challenge)
	ctx := testutil.ContextWithUser(user)
	request := submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: flag}

	if _, err := h.submissions.SubmitFlag(ctx, request); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	result, err := h.submissions.SubmitFlag(ctx, request)
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if !result.Correct || !result.AlreadySolved {
		t.Errorf("repeat must be correct and already solved, got %+v", result)
	}
	if result.PointsAwarded != 0 {
		t.Errorf("repeat must award nothing, got %d", result.PointsAwarded)
	}
	if score := h.store.TeamScore(*user.TeamID); score != 500 {
		t.Errorf("score must stay at 500, got %d", score)
	}
	if h.store.SubmissionCount() != 2 {
		t.Errorf("both attempts must be recorded, got %d", h.store.SubmissionCount())
	}
}

func TestConcurrentCorrectSubmissionsScoreOnce(t *testing.T) {
	h := newHarness()
	challenge := h.store.SeedChallenge(database.Challenge{
		ChallengeName: "heap-note",
		Points:        500,
		IsDynamicFlag: true,
		TtlSeconds:    3600,
	})
	user, flag := seedRunningInstance(t, h, "team-rocket", "jessie", challenge)
	ctx := testutil.ContextWithUser(user)
	request := submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: flag}

	const racers = 8
	var wg sync.WaitGroup
	credited := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.submissions.SubmitFlag(ctx, request)
			if err != nil {
				t.Errorf("racing submit failed: %v", err)
				return
			}
			if !result.Correct {
				t.Error("racing submit graded a correct flag wrong")
				return
			}
			credited <- result.PointsAwarded > 0
		}()
	}
	wg.Wait()
	close(credited)

	scored := 0
	for wasCredited := range credited {
		if wasCredited {
			scored++
		}
	}
	if scored != 1 {
		t.Errorf("exactly one racer may score, got %d", scored)
	}
	if h.store.SolveCount() != 1 {
		t.Errorf("expected exactly one solve, got %d", h.store.SolveCount())
	}
	if score := h.store.TeamScore(*user.TeamID); score != 500 {
		t.Errorf("team must be credited exactly once, got score %d", score)
	}
	if h.store.SubmissionCount() != racers {
		t.Errorf("all %d attempts must be recorded, got %d", racers, h.store.SubmissionCount())
	}
}

func TestSecondTeammateCanSolveAgain(t *testing.T) {
	h := newHarness()
	challenge := h.store.SeedChallenge(database.Challenge{
		ChallengeName: "heap-note",
		Points:        500,
		IsDynamicFlag: true,
		TtlSeconds:    3600,
	})
	first, flag := seedRunningInstance(t, h, "team-rocket", "jessie", challenge)
	second := h.store.SeedUser("james", first.TeamID, string(user_service.RolePlayer))

	if _, err := h.submissions.SubmitFlag(
		testutil.ContextWithUser(first),
		submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: flag},
	); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// the solve uniqueness is per user, so a teammate's solve lands too
	// and the team is credited again
	result, err := h.submissions.SubmitFlag(
		testutil.ContextWithUser(second),
		submission_service.SubmitFlagRequest{ChallengeID: challenge.ID, Flag: flag},
	)
	if err != nil {
		t.Fatalf("teammate submit failed: %v", err)
	}
	if !result.Correct || result.AlreadySolved {
		t.Errorf("teammate's first solve must count, got %+v", result)
	}
	if h.store.SolveCount() != 2 {
		t.Errorf("expected two solves, got %d", h.store.SolveCount())
	}
}
