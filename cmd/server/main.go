package main

import (
	"context"
	"flag"
	"log/syslog"
	"net"
	"net/smtp"
	"os"
	"os/signal"
	"time"

	"github.com/adevtutorials/authors/mail"
	"github.com/adevtutorials/authors/persistent"
	"github.com/adevtutorials/authors/pgdb"
	"github.com/adevtutorials/authors/transport/rest"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

func listenAndServe(
	ctx context.Context,
	bdb *buntdb.DB,
	db *bun.DB,
	mailer *mail.Queue,
	debug bool,
) func() error {
	userStore := &persistent.UserStore{DB: db}
	profileStore := &persistent.ProfileStore{DB: db}
	activityStore := &persistent.ActivityStore{DB: db}
	socialGraph := &persistent.SocialGraph{DB: db}
	sessionStore := &persistent.SessionStore{Buntdb: bdb, ActivityStore: activityStore}
	if err := sessionStore.CreateIndexes(); err != nil {
		logrus.WithError(err).Fatalln("Could not create session indexes.")
	}

	authController := rest.AuthController{
		UserStore:    userStore,
		SessionStore: sessionStore,
	}
	profileController := rest.ProfileController{
		Profiles: profileStore,
		Graph:    socialGraph,
		Activity: activityStore,
		Mailer:   mailer,
	}
	sessionController := rest.SessionController{Store: sessionStore}

	server := fiber.New()
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})

	allowOrigins := "https://authors.adevtutorials.com"
	if debug {
		allowOrigins += ", http://localhost:3000"
	}
	api.Use(cors.New(cors.Config{AllowOrigins: allowOrigins}))

	requestAuthorizer := rest.RequestAuthorizer(sessionStore, userStore)
	api.Get("/status", monitor.New())
	authController.InstallTo(api)
	profileController.InstallTo(requestAuthorizer, api)
	sessionController.InstallTo(requestAuthorizer, api)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)

	var addr string
	if debug {
		addr = "127.0.0.1:8000"
	} else {
		addr = ":8000"
	}
	go server.Listen(addr)

	return server.Shutdown
}

func setupLogger(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "authors_backend")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logrus.Fatalln(key + " not set!")
	}
	return value
}

func setupMail() (*mail.Queue, func()) {
	nsqdAddr := requireEnv("NSQD_ADDRESS")

	queue, err := mail.NewQueue(nsqdAddr)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create mail queue.")
	}

	sender := &mail.Sender{
		SmtpAddr: requireEnv("SMTP_ADDR"),
		From:     requireEnv("SMTP_FROM"),
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		host, _, err := net.SplitHostPort(sender.SmtpAddr)
		if err != nil {
			logrus.WithError(err).Fatalln("Invalid SMTP_ADDR.")
		}
		sender.Auth = smtp.PlainAuth("", user, requireEnv("SMTP_PASSWORD"), host)
	}

	consumer, err := mail.StartConsumer(nsqdAddr, "authors_backend", sender)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not start mail consumer.")
	}

	return queue, func() {
		queue.Stop()
		consumer.Stop()
	}
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	flag.Parse()
	debug := os.Getenv("DEBUG") == "true"
	setupLogger(debug)
	logrus.Infoln("Starting backend.")

	pgDsn := requireEnv("POSTGRES_DSN")

	bdb, err := buntdb.Open("kv.db")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open buntdb.")
	}
	defer bdb.Close()

	logrus.Infoln("Opening database.")
	pg := pgdb.Open(context.Background(), pgDsn)
	if debug {
		pg.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	defer pg.Close()

	mailer, stopMail := setupMail()
	defer stopMail()

	logrus.Infoln("Starting listening... To shut down use ^C")
	shutdown := listenAndServe(context.Background(), bdb, pg, mailer, debug)

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	if err := shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
	logrus.Exit(0)
}
