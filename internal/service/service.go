// Package service is the application layer between the HTTP handlers and the
// controller, repositories and printer integration.
package service

import (
	"chamberctl/internal/controller"
	"chamberctl/internal/logger"
	"chamberctl/internal/repository"
)

// Authorization handles user accounts and JWT issuing.
type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Service aggregates the sub-services the handlers depend on.
type Service struct {
	Authorization

	Chamber  *controller.Controller
	Settings *SettingsService
	EventLog *EventLogService
	Printer  *PrinterService
}

func NewService(
	log *logger.Logger,
	repos *repository.Repository,
	chamber *controller.Controller,
	printerSvc *PrinterService,
	authCfg AuthConfig,
) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Auth, authCfg),
		Chamber:       chamber,
		Settings:      NewSettingsService(log, repos.Settings, chamber, printerSvc),
		EventLog:      NewEventLogService(repos.Events),
		Printer:       printerSvc,
	}
}
