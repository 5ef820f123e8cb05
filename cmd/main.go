package main

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/FloatCTF/cdm/internal/api"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/provisioner"
	"github.com/FloatCTF/cdm/internal/service"
	"github.com/FloatCTF/cdm/internal/service/audit_service"
	"github.com/FloatCTF/cdm/internal/service/challenge_service"
	"github.com/FloatCTF/cdm/internal/service/flag_service"
	"github.com/FloatCTF/cdm/internal/service/instance_service"
	"github.com/FloatCTF/cdm/internal/service/runner_service"
	"github.com/FloatCTF/cdm/internal/service/scoreboard_service"
	"github.com/FloatCTF/cdm/internal/service/submission_service"
	"github.com/FloatCTF/cdm/internal/service/user_service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const challengeCacheSize = 256

var (
	apiConfig *api.Api
)

func initDatabase() *database.Store {
	// get the database url
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		panic("dbURL not found")
	}

	// create a connection to the database
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		panic(err)
	}

	// get the query tool with this connection
	return database.NewStore(pool)
}

func initRunner() *runner_service.Runner {
	log.Info("initializing runner")
	runner := runner_service.Runner{
		Resources: runner_service.Resources{
			CPU:    4,
			Memory: 4096,
		},
		QueueBuffer: 32,
	}
	runner.Start()
	return &runner
}

func initProvisioner(runner *runner_service.Runner) *provisioner.ComposeProvisioner {
	log.Info("initializing provisioner")
	p := provisioner.ComposeProvisioner{
		Runner:        runner,
		PublicHost:    os.Getenv("PUBLIC_HOST"),
		ChallengesDir: os.Getenv("CHALLENGES_DIR"),
		CommandResources: runner_service.Resources{
			CPU:    1,
			Memory: 512,
		},
	}
	if err := p.CheckEnv(context.Background()); err != nil {
		panic(err)
	}
	return &p
}

func initRedis() *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Warn("redis url not found in environment, scoreboard caching disabled")
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(err)
	}
	return redis.NewClient(opts)
}

func initUserService(db database.Querier) *user_service.UserService {
	log.Info("initializing user service")
	return &user_service.UserService{
		DB: db,
	}
}

func initChallengeService(db database.Querier) *challenge_service.ChallengeService {
	log.Info("initializing challenge service")
	cs := challenge_service.ChallengeService{
		DB: db,
	}
	if err := cs.Initialize(challengeCacheSize); err != nil {
		panic(err)
	}
	return &cs
}

func initAuditService(
	db database.Querier,
	us *user_service.UserService,
) *audit_service.AuditService {
	log.Info("initializing audit service")
	return &audit_service.AuditService{
		DB:                db,
		UserServiceConfig: us,
	}
}

func initScoreboardService(db database.Querier) *scoreboard_service.ScoreboardService {
	log.Info("initializing scoreboard service")
	return &scoreboard_service.ScoreboardService{
		DB:    db,
		Cache: initRedis(),
	}
}

func initInstanceService(
	db database.Querier,
	us *user_service.UserService,
	cs *challenge_service.ChallengeService,
	as *audit_service.AuditService,
	p provisioner.Provisioner,
) *instance_service.InstanceService {
	log.Info("initializing instance service")
	return &instance_service.InstanceService{
		DB:                     db,
		UserServiceConfig:      us,
		ChallengeServiceConfig: cs,
		FlagServiceConfig:      &flag_service.FlagService{},
		AuditServiceConfig:     as,
		Provisioner:            p,
	}
}

func initSubmissionService(
	db database.Querier,
	us *user_service.UserService,
	cs *challenge_service.ChallengeService,
	as *audit_service.AuditService,
	sb *scoreboard_service.ScoreboardService,
) *submission_service.SubmissionService {
	log.Info("initializing submission service")
	return &submission_service.SubmissionService{
		DB:                      db,
		UserServiceConfig:       us,
		ChallengeServiceConfig:  cs,
		AuditServiceConfig:      as,
		ScoreboardServiceConfig: sb,
	}
}

func initApi(db database.Querier) *api.Api {
	log.Info("initializing api config")
	us := initUserService(db)
	cs := initChallengeService(db)
	as := initAuditService(db, us)
	sb := initScoreboardService(db)
	runner := initRunner()
	p := initProvisioner(runner)
	is := initInstanceService(db, us, cs, as, p)
	ss := initSubmissionService(db, us, cs, as, sb)

	is.StartExpirySweep(context.Background())

	return &api.Api{
		InstanceServiceConfig:   is,
		SubmissionServiceConfig: ss,
		ScoreboardServiceConfig: sb,
		AuditServiceConfig:      as,
	}
}

func setup() {
	godotenv.Load()
	service.InitializeServices()
	db := initDatabase()
	apiConfig = initApi(db)
}

func setCors(router *chi.Mux) {
	router.Use(
		cors.Handler(
			cors.Options{
				AllowedOrigins:   []string{"https://*", "http://*"},
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
				ExposedHeaders:   []string{"Link"},
				MaxAge:           300,
			},
		),
	)
	log.Info("cors options has been set")
}

func main() {
	setup()

	// initialize a new router
	router := chi.NewRouter()
	setCors(router)

	// mount v1 router
	v1router := NewV1Router()
	router.Mount("/v1", v1router)
	log.Info("v1 router has been mounted")

	// find port for the server to start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Warnf("port not found in environment. using default port %s", port)
	}

	// find the address to start the server
	apiAddress := os.Getenv("API_URL") + ":" + port

	log.Info("starting server")
	// create a server object to listen to all requests
	srv := http.Server{
		Handler: router,
		Addr:    apiAddress,
	}
	err := srv.ListenAndServe()
	if err != nil {
		log.Fatalf("Server cannot be started. Error: %v", err)
		return
	}

}
