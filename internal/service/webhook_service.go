package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/paydesk/mp-webhook-service/internal/mercadopago"
	"github.com/paydesk/mp-webhook-service/internal/model"
	"github.com/paydesk/mp-webhook-service/internal/notification"
	"github.com/paydesk/mp-webhook-service/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidPayload means the notification body is not valid JSON.
	ErrInvalidPayload = errors.New("invalid notification payload")
	// ErrEmpresaNotFound is returned by lookups for an unknown tenant.
	ErrEmpresaNotFound = errors.New("empresa not found")
	// ErrOrdenNotFound is returned by lookups for an unknown order.
	ErrOrdenNotFound = errors.New("orden not found")
)

const (
	StatusOK        = "ok"
	StatusDuplicado = "duplicado"

	statusOrdenCreada = "orden creada"
)

// zonaAR is the civil time zone stamped on order-creation events. Falls
// back to a fixed UTC-3 offset when the tzdata is unavailable.
var zonaAR = func() *time.Location {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}()

// PaymentLookup is the processor-side read the pipeline enriches from.
type PaymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.PaymentInfo, error)
}

// IngestResult is the outcome reported back to the webhook caller.
type IngestResult struct {
	Status   string
	Empresa  string
	EventoID string
	OrdenID  string
}

// WebhookService runs the ingestion pipeline: resolve tenant, check
// duplicates, enrich from the processor, write exactly one evento. It
// holds no mutable state and is safe under arbitrary request parallelism;
// duplicate races are settled by the storage unique indexes.
type WebhookService struct {
	repo repo.RepositoryInterface
	mp   PaymentLookup
	log  *zap.SugaredLogger
}

// NewWebhookService returns WebhookService.
func NewWebhookService(r repo.RepositoryInterface, mp PaymentLookup, logger *zap.SugaredLogger) *WebhookService {
	return &WebhookService{repo: r, mp: mp, log: logger}
}

// Ingest processes one notification for the named tenant. Returns
// ErrInvalidPayload for undecodable bodies; any other error is a hard
// storage failure. Duplicate deliveries come back as StatusDuplicado,
// never as errors.
func (s *WebhookService) Ingest(ctx context.Context, empresaNombre string, body []byte, query url.Values) (*IngestResult, error) {
	n, err := notification.Parse(body)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	empresa, err := s.repo.GetOrCreateEmpresa(ctx, s.repo.DB(ctx), empresaNombre)
	if err != nil {
		return nil, err
	}

	kind := n.Kind()
	ordenID := n.OrderID()

	if ordenID != "" {
		if seen, err := s.repo.SeenOrder(ctx, empresa.ID, ordenID); err != nil {
			s.log.Warnf("dedup cache empresa=%s orden=%s: %v", empresa.Nombre, ordenID, err)
		} else if seen {
			return &IngestResult{Status: StatusDuplicado, Empresa: empresa.Nombre, OrdenID: ordenID}, nil
		}

		var exists bool
		if kind == notification.KindMerchantOrder {
			// order-creation placeholders dedup only against other
			// placeholders, not against payment rows
			exists, err = s.repo.ExistsPlaceholder(ctx, empresa.ID, ordenID)
		} else {
			exists, err = s.repo.ExistsByOrderRef(ctx, empresa.ID, ordenID)
		}
		if err != nil {
			return nil, err
		}
		if exists {
			return &IngestResult{Status: StatusDuplicado, Empresa: empresa.Nombre, OrdenID: ordenID}, nil
		}
	}

	paymentID := n.PaymentID(query)
	if paymentID != "" {
		// catches retries of notifications that carry no order reference
		exists, err := s.repo.ExistsByPayment(ctx, empresa.ID, paymentID)
		if err != nil {
			return nil, err
		}
		if exists {
			return &IngestResult{Status: StatusDuplicado, Empresa: empresa.Nombre, OrdenID: ordenID}, nil
		}
	}

	var status, merchantOrderID, externalRef *string
	evento := &model.Evento{
		EmpresaID: empresa.ID,
		OrdenID:   optional(ordenID),
		EventoID:  optional(n.ID),
		Action:    optional(n.Action),
		Type:      optional(n.Type),
		Contenido: string(n.Raw),
	}

	if paymentID != "" {
		info, err := s.mp.GetPayment(ctx, paymentID)
		if err != nil {
			// soft failure: the notification is still worth recording
			s.log.Warnf("payment lookup empresa=%s payment=%s: %v", empresa.Nombre, paymentID, err)
		}
		status = info.Status
		merchantOrderID = info.MerchantOrderID
		externalRef = info.ExternalReference
		evento.Amount = info.Amount
	}

	switch kind {
	case notification.KindMerchantOrder:
		// processor sends no timestamp for order creation; stamp ingestion
		// wall-clock time in Argentina civil time
		fecha := time.Now().In(zonaAR).Format(time.RFC3339Nano)
		evento.DateCreated = &fecha
		st := statusOrdenCreada
		status = &st
		merchantOrderID = optional(ordenID)
	case notification.KindPayment:
		evento.DateCreated = optional(n.DateCreated)
	default:
		evento.DateCreated = optional(n.DateCreated)
		merchantOrderID = nil
	}

	evento.PaymentID = optional(paymentID)
	evento.Status = status
	evento.MerchantOrderID = merchantOrderID
	evento.ExternalReference = externalRef

	err = s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateEvento(ctx, tx, evento); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"empresa":    empresa.Nombre,
			"evento_id":  evento.ID,
			"orden_id":   evento.OrdenID,
			"payment_id": evento.PaymentID,
			"status":     evento.Status,
		})
		out := &model.OutboxEvent{
			EmpresaID: empresa.ID,
			EventoID:  evento.ID,
			EventType: "evento_ingresado",
			Payload:   string(payload),
		}
		return s.repo.CreateOutboxEvent(ctx, tx, out)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent duplicate delivery won the insert race
			return &IngestResult{Status: StatusDuplicado, Empresa: empresa.Nombre, OrdenID: ordenID}, nil
		}
		return nil, err
	}

	if ordenID != "" {
		if err := s.repo.CacheSeenOrder(ctx, empresa.ID, ordenID); err != nil {
			s.log.Warnf("dedup cache set empresa=%s orden=%s: %v", empresa.Nombre, ordenID, err)
		}
	}

	return &IngestResult{Status: StatusOK, Empresa: empresa.Nombre, EventoID: n.ID, OrdenID: ordenID}, nil
}

// Resultado returns the verbatim stored payload for (empresa, orden).
func (s *WebhookService) Resultado(ctx context.Context, empresaNombre, ordenID string) (json.RawMessage, error) {
	empresa, err := s.repo.FindEmpresaByNombre(ctx, empresaNombre)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmpresaNotFound
		}
		return nil, err
	}
	evento, err := s.repo.FindEventoByOrden(ctx, empresa.ID, ordenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrdenNotFound
		}
		return nil, err
	}
	return json.RawMessage(evento.Contenido), nil
}

// Repo exposes underlying repository (unit tests helper).
func (s *WebhookService) Repo() repo.RepositoryInterface {
	return s.repo
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
