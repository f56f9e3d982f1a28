package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/diarybot/core/logger"
	tg "github.com/m3rciful/diarybot/core/telegram"
	"github.com/m3rciful/diarybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

type CommandRouteOptions struct {
	Sudo         middleware.SudoChecker
	OnSudoReject tele.HandlerFunc // nil replies with middleware.SudoDeniedText
}

// CommandRoutes builds one route per command and alias. Sudo commands are
// checked against opts.Sudo after the update is logged.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.SudoOnly(middleware.SudoOptions{Checker: opts.Sudo, OnReject: opts.OnSudoReject})

	cmds := reg.Commands()
	var routes []tg.Route
	sudo := 0
	for name, def := range cmds {
		h := def.Handler
		if def.Sudo {
			h = gate(h)
			sudo++
		}
		label, inner := handlerName("command", name), h
		h = wrap(func(c tele.Context) error { return newSummary(label).run(c, inner) })

		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias != "" {
				routes = append(routes, tg.Route{Endpoint: "/" + strings.TrimLeft(alias, "/"), Handler: h})
			}
		}
	}

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "complete",
		slog.Int("commands", len(cmds)),
		slog.Int("sudo_commands", sudo),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
