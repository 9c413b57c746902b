package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"picwall/internal/services"
)

var adminPasswordCommand = &cli.Command{
	Name:  "admin-password",
	Usage: "Задать пароль администратора",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Новый пароль (если не задан, читается из stdin)",
			EnvVars: []string{"PICWALL_NEW_ADMIN_PASSWORD"},
		},
	},
	Action: setAdminPassword,
}

func setAdminPassword(cCtx *cli.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	password := cCtx.String("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Новый пароль: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("не удалось прочитать пароль: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	admin := services.NewAdminService(a.db, time.Now, a.log)
	if err := admin.SetPassword(cCtx.Context, password); err != nil {
		return err
	}
	a.log.Info("Пароль администратора обновлен")
	return nil
}
