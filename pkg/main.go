package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pkg "git.solsynth.dev/hypernet/bookclub/pkg/internal"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/cache"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/http"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" ____              _        _       _\n| __ )  ___   ___ | | _____| |_   _| |__\n|  _ \\ / _ \\ / _ \\| |/ / __| | | | | '_ \\\n| |_) | (_) | (_) |   < (__| | |_| | |_) |\n|____/ \\___/ \\___/|_|\\_\\___|_|\\__,_|_.__/"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Hypernet.Bookclub"), pkg.AppVersion)
	fmt.Printf("The reading club bot in Hypernet\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	_ = godotenv.Load()
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("BOOKCLUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}
	if err := services.ReadSettings(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when reading engine settings.")
	}
	if viper.GetBool("debug.verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}
	services.Catalog = services.NewGoogleBooksCatalog()
	services.Answers = lo.Must(services.NewAnswerResolver(services.Settings.AnswerCacheSize))

	// Connect to discord
	if err := gap.InitializeToDiscord(services.HandleEvent); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to discord...")
	}

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	if _, err := quartz.AddFunc(services.Settings.ExpiredPollsSpec, services.DoExpiredPollSweep); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the poll sweeper.")
	}
	if _, err := quartz.AddFunc(services.Settings.DeadlinesSpec, services.DoDeadlineSweep); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the deadline sweeper.")
	}
	quartz.Start()

	// Server
	server := http.NewServer()
	go server.Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	<-quartz.Stop().Done()
	if err := server.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when shutting down server...")
	}
	gap.CloseDiscord()
}
