package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-stress-service/internal/config"
	"github.com/couchcryptid/climate-stress-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher writes stress report summaries to a Kafka topic.
// It implements pipeline.ReportPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes the report and writes it keyed by scenario, so every
// run of one scenario lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, report domain.Report) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", report.ID, err)
	}
	p.logger.Debug("report published", "report_id", report.ID, "scenario", report.Scenario.Key)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// reportMessage is the wire form of a report. Map points are left out; the
// consumer can rebuild them from the cached book.
type reportMessage struct {
	ID            string               `json:"id"`
	Scenario      domain.Scenario      `json:"scenario"`
	GeneratedAt   time.Time            `json:"generated_at"`
	LoanCount     int                  `json:"loan_count"`
	CriticalCount int                  `json:"critical_count"`
	TotalCrores   string               `json:"total_portfolio_crores"`
	AtRiskCrores  string               `json:"capital_at_risk_crores"`
	Critical      []domain.CriticalRow `json:"critical"`
}

// serializeToMessage marshals a report into a Kafka message.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	body := reportMessage{
		ID:            report.ID,
		Scenario:      report.Scenario,
		GeneratedAt:   report.GeneratedAt,
		LoanCount:     report.Summary.LoanCount,
		CriticalCount: report.Summary.CriticalCount,
		TotalCrores:   report.Summary.TotalCrores().StringFixed(2),
		AtRiskCrores:  report.Summary.CapitalAtRiskCrores().StringFixed(2),
		Critical:      report.Critical,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize stress report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Scenario.Key),
		Value: data,
		Time:  report.GeneratedAt,
		Headers: []kafkago.Header{
			{Key: "scenario", Value: []byte(report.Scenario.Key)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
