package queue

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qatalysthq/qatalyst-backend/internal/agents"
	dbpkg "github.com/qatalysthq/qatalyst-backend/pkg/db"
	"github.com/qatalysthq/qatalyst-backend/pkg/db/models"
	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
	pkgerrors "github.com/qatalysthq/qatalyst-backend/pkg/errors"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/metrics"
	"github.com/qatalysthq/qatalyst-backend/pkg/outbox"
	"github.com/qatalysthq/qatalyst-backend/pkg/phone"
)

const guestCustomerName = "Guest Customer"

// ticketNumberRe is the wire contract for ticket display codes: T + exactly
// six digits. Status lookups validate against it before touching the store.
var ticketNumberRe = regexp.MustCompile(`^T\d{6}$`)

// NowServingNone is rendered when a partition has no waiting tickets.
const NowServingNone = "None"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns ticket lifecycle transitions and the call-next dispatch.
type Service interface {
	Join(ctx context.Context, input JoinInput) (*JoinResult, error)
	List(ctx context.Context) ([]TicketView, error)
	Status(ctx context.Context, ticketNumber string) (*StatusResult, error)
	PositionByPhone(ctx context.Context, rawPhone string) (*PhonePosition, error)
	CallNext(ctx context.Context, agentID, serviceType string) (*CallNextResult, error)
}

type service struct {
	repo             Repository
	agents           agents.Repository
	tx               txRunner
	outbox           outboxPublisher
	logg             *logger.Logger
	metrics          *metrics.QueueMetrics
	minutesPerTicket int
}

// NewService builds the queue engine with the required dependencies.
func NewService(repo Repository, agentRepo agents.Repository, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger, qm *metrics.QueueMetrics, minutesPerTicket int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if agentRepo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if minutesPerTicket <= 0 {
		minutesPerTicket = 2
	}
	return &service{
		repo:             repo,
		agents:           agentRepo,
		tx:               tx,
		outbox:           outboxSvc,
		logg:             logg,
		metrics:          qm,
		minutesPerTicket: minutesPerTicket,
	}, nil
}

// TicketNumberFromID derives the immutable display code from the row id.
func TicketNumberFromID(id int64) string {
	return fmt.Sprintf("T%06d", id)
}

// ValidTicketNumber reports whether raw matches the display-code contract.
func ValidTicketNumber(raw string) bool {
	return ticketNumberRe.MatchString(raw)
}

func (s *service) Join(ctx context.Context, input JoinInput) (*JoinResult, error) {
	normalized, err := phone.Normalize(input.Phone)
	if err != nil {
		return nil, err
	}

	serviceType := strings.TrimSpace(input.ServiceType)
	if serviceType == "" {
		serviceType = ServiceGeneral
	}
	if !KnownService(serviceType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service type %q", serviceType))
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = guestCustomerName
	}

	channel := input.Channel
	if !channel.IsValid() {
		channel = enums.ChannelUSSD
	}

	var result *JoinResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindActive(ctx, normalized, serviceType)
		if err == nil {
			result, err = s.summarize(ctx, repo, existing, true)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking active ticket")
		}

		ticket := &models.Ticket{
			Phone:        normalized,
			CustomerName: &name,
			ServiceType:  serviceType,
			Status:       enums.TicketStatusWaiting,
			Priority:     enums.TicketPriorityNormal,
			Channel:      channel,
			KioskID:      input.KioskID,
		}
		if err := repo.Create(ctx, ticket); err != nil {
			// Lost the check-then-act race; the partial unique index caught it.
			if dbpkg.IsUniqueViolation(err, "ux_tickets_phone_service_active") {
				existing, findErr := repo.FindActive(ctx, normalized, serviceType)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "resolving duplicate join")
				}
				result, err = s.summarize(ctx, repo, existing, true)
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting ticket")
		}

		number := TicketNumberFromID(ticket.ID)
		if err := repo.AssignTicketNumber(ctx, ticket.ID, number); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assigning ticket number")
		}
		ticket.TicketNumber = number

		result, err = s.summarize(ctx, repo, ticket, false)
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketCreated,
			AggregateType: enums.AggregateTicket,
			AggregateID:   number,
			Actor:         &outbox.ActorRef{Channel: string(channel)},
			Version:       1,
			Data: TicketCreatedEvent{
				TicketNumber:    number,
				Phone:           normalized,
				CustomerName:    name,
				ServiceType:     serviceType,
				Position:        result.Position,
				WaitTimeMinutes: result.WaitTimeMinutes,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyInQueue {
		s.metrics.IncJoin(serviceType, string(channel))
	}
	if s.logg != nil {
		logCtx := s.logg.WithPhone(ctx, phone.Mask(normalized))
		logCtx = s.logg.WithTicketNumber(logCtx, result.TicketNumber)
		s.logg.Info(logCtx, "queue joined")
	}
	return result, nil
}

func (s *service) summarize(ctx context.Context, repo Repository, ticket *models.Ticket, alreadyInQueue bool) (*JoinResult, error) {
	position, err := repo.Position(ctx, ticket.ServiceType, ticket.CreatedAt, ticket.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "computing position")
	}
	return &JoinResult{
		TicketNumber:    ticket.TicketNumber,
		Position:        position,
		WaitTimeMinutes: position * s.minutesPerTicket,
		PeopleAhead:     position - 1,
		AlreadyInQueue:  alreadyInQueue,
		ServiceType:     ticket.ServiceType,
	}, nil
}

func (s *service) List(ctx context.Context) ([]TicketView, error) {
	tickets, err := s.repo.ListWaiting(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing waiting tickets")
	}

	views := make([]TicketView, 0, len(tickets))
	// Positions restart at 1 per partition; the list is ordered by
	// (service_type, created_at, id) already.
	var currentPartition string
	rank := 0
	for _, ticket := range tickets {
		if ticket.ServiceType != currentPartition {
			currentPartition = ticket.ServiceType
			rank = 0
		}
		rank++
		name := guestCustomerName
		if ticket.CustomerName != nil && *ticket.CustomerName != "" {
			name = *ticket.CustomerName
		}
		views = append(views, TicketView{
			ID:                ticket.ID,
			TicketNumber:      ticket.TicketNumber,
			Phone:             ticket.Phone,
			CustomerName:      name,
			ServiceType:       ticket.ServiceType,
			Status:            ticket.Status,
			Priority:          ticket.Priority,
			CreatedAt:         ticket.CreatedAt,
			Position:          rank,
			EstimatedWaitTime: rank * s.minutesPerTicket,
		})
	}
	return views, nil
}

func (s *service) Status(ctx context.Context, ticketNumber string) (*StatusResult, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(ticketNumber))
	if !ValidTicketNumber(cleaned) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket number must match T followed by six digits")
	}

	ticket, err := s.repo.FindByNumber(ctx, cleaned)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up ticket")
	}

	position, err := s.repo.Position(ctx, ticket.ServiceType, ticket.CreatedAt, ticket.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "computing position")
	}

	nowServing := NowServingNone
	if next, err := s.repo.EarliestWaiting(ctx, ticket.ServiceType, false); err == nil {
		nowServing = next.TicketNumber
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving now serving")
	}

	waitTime := (position - 1) * s.minutesPerTicket
	if waitTime < 0 {
		waitTime = 0
	}

	return &StatusResult{
		TicketNumber:    ticket.TicketNumber,
		Position:        position,
		NowServing:      nowServing,
		WaitTimeMinutes: waitTime,
	}, nil
}

func (s *service) PositionByPhone(ctx context.Context, rawPhone string) (*PhonePosition, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	ticket, err := s.repo.EarliestActiveByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "phone is not queued")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up phone")
	}

	position, err := s.repo.Position(ctx, ticket.ServiceType, ticket.CreatedAt, ticket.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "computing position")
	}

	return &PhonePosition{Phone: normalized, Position: position}, nil
}

func (s *service) CallNext(ctx context.Context, agentID, serviceType string) (*CallNextResult, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}

	filter := strings.TrimSpace(serviceType)
	if strings.EqualFold(filter, ServiceFilterUnknown) {
		filter = ""
	}
	if filter != "" && !KnownService(filter) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service type %q", filter))
	}

	var result *CallNextResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		agentRepo := s.agents.WithTx(tx)

		agent, err := agentRepo.Find(ctx, agentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving agent")
		}

		candidate, err := repo.EarliestWaiting(ctx, filter, true)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "selecting candidate")
			}
			// Empty queue: wind the agent down, completing any held ticket.
			var completed *string
			if agent.CurrentTicket != nil {
				if err := repo.Complete(ctx, *agent.CurrentTicket); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing held ticket")
				}
				completed = agent.CurrentTicket
			}
			if err := agentRepo.Release(ctx, agent.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing agent")
			}
			result = &CallNextResult{
				CurrentTicket: completed,
				NextTicket:    nil,
				Message:       "No waiting tickets",
			}
			return nil
		}

		var completed *string
		if agent.CurrentTicket != nil {
			if err := repo.Complete(ctx, *agent.CurrentTicket); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing held ticket")
			}
			completed = agent.CurrentTicket
		}

		if err := repo.Start(ctx, candidate.ID, agent.ID, time.Now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "starting candidate ticket")
		}
		if err := agentRepo.AssignTicket(ctx, agent.ID, candidate.TicketNumber); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assigning agent")
		}

		// Post-transition rank: the candidate no longer counts itself.
		position, err := repo.Position(ctx, candidate.ServiceType, candidate.CreatedAt, candidate.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recomputing position")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketCalled,
			AggregateType: enums.AggregateTicket,
			AggregateID:   candidate.TicketNumber,
			Actor:         &outbox.ActorRef{AgentID: &agent.ID},
			Version:       1,
			Data: TicketCalledEvent{
				TicketNumber: candidate.TicketNumber,
				Phone:        candidate.Phone,
				ServiceType:  candidate.ServiceType,
				AgentID:      agent.ID,
			},
		}); err != nil {
			return err
		}

		result = &CallNextResult{
			CurrentTicket: completed,
			NextTicket: &CalledTicket{
				TicketNumber: candidate.TicketNumber,
				Phone:        candidate.Phone,
				ServiceType:  candidate.ServiceType,
				Position:     position,
			},
			Message: fmt.Sprintf("Now serving %s", candidate.TicketNumber),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.NextTicket != nil {
		s.metrics.IncCall()
		if s.logg != nil {
			logCtx := s.logg.WithAgentID(ctx, agentID)
			logCtx = s.logg.WithTicketNumber(logCtx, result.NextTicket.TicketNumber)
			s.logg.Info(logCtx, "ticket called")
		}
	}
	return result, nil
}
