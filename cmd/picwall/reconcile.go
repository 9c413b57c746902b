package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"picwall/internal/services"
)

var reconcileCommand = &cli.Command{
	Name:  "reconcile",
	Usage: "Сверить каталог контента с базой и удалить осиротевшие файлы",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Только показать расхождения, ничего не удалять",
		},
		&cli.DurationFlag{
			Name:  "grace",
			Usage: "Не трогать файлы моложе этого возраста",
			Value: services.DefaultGracePeriod,
		},
	},
	Action: reconcile,
}

func reconcile(cCtx *cli.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	svc := services.NewReconcileService(a.db, a.store, cCtx.Duration("grace"), time.Now, a.log)
	report, err := svc.Run(cCtx.Context, cCtx.Bool("dry-run"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
