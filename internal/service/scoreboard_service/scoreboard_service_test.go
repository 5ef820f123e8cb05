package scoreboard_service_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/scoreboard_service"
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

func seedTeamWithSolves(
	store *testutil.MemStore,
	name string,
	banned bool,
	solvedAt map[int32]time.Time,
) database.Team {
	team := store.SeedTeam(name, banned)
	user := store.SeedUser(name+"-captain", &team.ID, string(user_service.RolePlayer))
	for challengeID, at := range solvedAt {
		store.SeedSolve(user, challengeID, at)
	}
	return team
}

func TestScoreboardTotalsAndOrder(t *testing.T) {
	store := testutil.NewMemStore()
	sb := scoreboard_service.ScoreboardService{DB: store}

	warmup := store.SeedChallenge(database.Challenge{ChallengeName: "warmup", Points: 100})
	heap := store.SeedChallenge(database.Challenge{ChallengeName: "heap-note", Points: 500})

	base := time.Now().Add(-time.Hour)
	seedTeamWithSolves(store, "solo", false, map[int32]time.Time{
		warmup.ID: base,
	})
	seedTeamWithSolves(store, "grinders", false, map[int32]time.Time{
		warmup.ID: base.Add(5 * time.Minute),
		heap.ID:   base.Add(30 * time.Minute),
	})
	seedTeamWithSolves(store, "idle", false, nil)

	standings, err := sb.GetScoreboard(context.Background())
	if err != nil {
		t.Fatalf("scoreboard failed: %v", err)
	}
	if len(standings) != 3 {
		t.Fatalf("expected 3 teams, got %d", len(standings))
	}

	if standings[0].TeamName != "grinders" || standings[0].Score != 600 {
		t.Errorf("expected grinders first with 600, got %s with %d", standings[0].TeamName, standings[0].Score)
	}
	if standings[1].TeamName != "solo" || standings[1].Score != 100 {
		t.Errorf("expected solo second with 100, got %s with %d", standings[1].TeamName, standings[1].Score)
	}
	if standings[2].TeamName != "idle" || standings[2].Score != 0 {
		t.Errorf("expected idle last with 0, got %s with %d", standings[2].TeamName, standings[2].Score)
	}
	for idx, standing := range standings {
		if standing.Rank != int32(idx+1) {
			t.Errorf("standing %d carries rank %d", idx, standing.Rank)
		}
	}
}

func TestScoreboardTieBreaksOnEarlierLastSolve(t *testing.T) {
	store := testutil.NewMemStore()
	sb := scoreboard_service.ScoreboardService{DB: store}

	heap := store.SeedChallenge(database.Challenge{ChallengeName: "heap-note", Points: 500})

	base := time.Now().Add(-time.Hour)
	seedTeamWithSolves(store, "latecomers", false, map[int32]time.Time{
		heap.ID: base.Add(45 * time.Minute),
	})
	seedTeamWithSolves(store, "early-birds", false, map[int32]time.Time{
		heap.ID: base,
	})

	standings, err := sb.GetScoreboard(context.Background())
	if err != nil {
		t.Fatalf("scoreboard failed: %v", err)
	}
	if standings[0].TeamName != "early-birds" {
		t.Errorf("the earlier last solve must rank first, got %s", standings[0].TeamName)
	}
}

func TestScoreboardExcludesBannedTeams(t *testing.T) {
	store := testutil.NewMemStore()
	sb := scoreboard_service.ScoreboardService{DB: store}

	heap := store.SeedChallenge(database.Challenge{ChallengeName: "heap-note", Points: 500})
	seedTeamWithSolves(store, "cheaters", true, map[int32]time.Time{
		heap.ID: time.Now().Add(-time.Minute),
	})
	seedTeamWithSolves(store, "honest", false, nil)

	standings, err := sb.GetScoreboard(context.Background())
	if err != nil {
		t.Fatalf("scoreboard failed: %v", err)
	}
	if len(standings) != 1 || standings[0].TeamName != "honest" {
		t.Errorf("banned team must not appear, got %+v", standings)
	}
}

func TestRepairTeamScores(t *testing.T) {
	store := testutil.NewMemStore()
	sb := scoreboard_service.ScoreboardService{DB: store}

	heap := store.SeedChallenge(database.Challenge{ChallengeName: "heap-note", Points: 500})
	team := seedTeamWithSolves(store, "drifted", false, map[int32]time.Time{
		heap.ID: time.Now().Add(-time.Minute),
	})

	// the cached column disagrees with the solves
	if err := store.SetTeamScore(context.Background(), database.SetTeamScoreParams{
		ID:    team.ID,
		Score: 123,
	}); err != nil {
		t.Fatalf("cannot seed drift: %v", err)
	}

	repaired, err := sb.RepairTeamScores(context.Background())
	if err != nil {
		t.Fatalf("repair failed: %v", err)
	}
	if repaired != 1 {
		t.Errorf("expected 1 repaired team, got %d", repaired)
	}
	if score := store.TeamScore(team.ID); score != 500 {
		t.Errorf("cached score must match solves after repair, got %d", score)
	}

	// a second pass finds nothing to do
	repaired, err = sb.RepairTeamScores(context.Background())
	if err != nil {
		t.Fatalf("second repair failed: %v", err)
	}
	if repaired != 0 {
		t.Errorf("consistent scores must not be repaired, got %d", repaired)
	}
}
