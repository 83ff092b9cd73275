package cardpacks

import (
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks/database"
	"github.com/aniforreal/ani-engine/cardpacks/database/repositories"
	"github.com/aniforreal/ani-engine/cardpacks/gacha"
	"github.com/aniforreal/ani-engine/cardpacks/missions"
	"github.com/aniforreal/ani-engine/cardpacks/services"
	"github.com/aniforreal/ani-engine/cardpacks/utils"
)

func New(cfg Config, version string, commit string) *App {
	return &App{
		Cfg:       cfg,
		Version:   version,
		Commit:    commit,
		Processes: utils.NewProcessManager(),
	}
}

// App wires the engine and its collaborators together for the host
// process.
type App struct {
	Cfg     Config
	Version string
	Commit  string

	DB *database.DB

	UserRepository         repositories.UserRepository
	CardRepository         repositories.CardRepository
	UserCardRepository     repositories.UserCardRepository
	ClanRepository         repositories.ClanRepository
	GodPackUsageRepository repositories.GodPackUsageRepository
	XpPassRepository       repositories.XpPassRepository
	MissionRepository      repositories.MissionRepository

	Engine         *gacha.Engine
	MissionTracker *missions.Tracker
	SpacesService  *services.SpacesService
	Processes      *utils.ProcessManager
}

// Setup builds repositories, the engine and the background workers on
// top of an already connected database.
func (a *App) Setup() error {
	bunDB := a.DB.BunDB()

	a.UserRepository = repositories.NewUserRepository(bunDB)
	a.CardRepository = repositories.NewCardRepository(bunDB)
	a.UserCardRepository = repositories.NewUserCardRepository(bunDB)
	a.ClanRepository = repositories.NewClanRepository(bunDB)
	a.GodPackUsageRepository = repositories.NewGodPackUsageRepository(bunDB)
	a.XpPassRepository = repositories.NewXpPassRepository(bunDB)
	a.MissionRepository = repositories.NewMissionRepository(bunDB)

	a.MissionTracker = missions.NewTracker(a.MissionRepository)

	a.Engine = gacha.NewEngine(gacha.Repositories{
		Users:        a.UserRepository,
		Cards:        a.CardRepository,
		UserCards:    a.UserCardRepository,
		Clans:        a.ClanRepository,
		GodPackUsage: a.GodPackUsageRepository,
		XpPasses:     a.XpPassRepository,
	}, gacha.EngineConfig{
		MaxGodPacksDaily: a.Cfg.Draw.MaxGodPacksDaily,
		DrawCooldown:     time.Duration(a.Cfg.Draw.CooldownSeconds) * time.Second,
		LockDuration:     time.Duration(a.Cfg.Draw.LockSeconds) * time.Second,
	})
	a.Engine.SetMissionTracker(a.MissionTracker)

	if a.Cfg.Spaces.Key != "" {
		spaces, err := services.NewSpacesService(
			a.Cfg.Spaces.Key,
			a.Cfg.Spaces.Secret,
			a.Cfg.Spaces.Region,
			a.Cfg.Spaces.Bucket,
			a.Cfg.Spaces.CardRoot,
		)
		if err != nil {
			return err
		}
		a.SpacesService = spaces
		a.Engine.SetImageResolver(spaces)
	}

	a.Processes.Start("mission-tracker", a.MissionTracker.Run)
	a.Processes.Start("draw-session-cleanup", a.Engine.Sessions().StartCleanupRoutine)

	return nil
}

// Shutdown stops background workers and closes the database.
func (a *App) Shutdown(timeout time.Duration) {
	if err := a.Processes.Shutdown(timeout); err != nil {
		slog.Warn("Background shutdown incomplete", slog.Any("error", err))
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
