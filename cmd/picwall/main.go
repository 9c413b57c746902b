package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "picwall",
		Usage: "Сервис публикации изображений с модерацией",
		Commands: []*cli.Command{
			serveCommand,
			adminPasswordCommand,
			reconcileCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("Ошибка выполнения команды")
	}
}
