// Command token enrolls a user (and optionally their first account) and
// prints an access token for the sync client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/dmitrijs2005/finsync/internal/flagx"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/finsync/internal/server/services"
	"github.com/joho/godotenv"
)

func parseEnrollment(args []string) (services.Enrollment, error) {
	var e services.Enrollment

	set := flag.NewFlagSet("token", flag.ContinueOnError)
	set.StringVar(&e.Email, "email", "", "user email (alert recipient address)")
	set.StringVar(&e.Name, "name", "", "display name")
	set.StringVar(&e.Phone, "phone", "", "phone number for SMS alerts")
	set.StringVar(&e.AccountName, "account", "", "create this account if the user has none")
	set.StringVar(&e.AccountType, "type", "", "account type")
	set.StringVar(&e.Currency, "currency", "", "account currency")

	err := set.Parse(flagx.FilterArgs(args, []string{"-email", "-name", "-phone", "-account", "-type", "-currency"}))
	if err != nil {
		return e, err
	}
	if e.Email == "" {
		return e, errors.New("-email is required")
	}
	return e, nil
}

func main() {

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf(".env: %v", err)
	}

	e, err := parseEnrollment(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	us := services.NewUserService(db, m, cfg)

	user, account, err := us.Enroll(ctx, e)
	if err != nil {
		log.Fatalf("enroll: %v", err)
	}
	if account != nil {
		log.Printf("account %s (%s)", account.Name, account.ID)
	}

	token, err := us.IssueToken(ctx, user.Email)
	if err != nil {
		log.Fatalf("token: %v", err)
	}

	fmt.Println(token)
}
