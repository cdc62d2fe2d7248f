// Package publish emits enriched sites to Kafka so downstream consumers
// can pick up analysis results without polling for files.
package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// Writer produces one message per enriched site to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
}

// NewWriter creates a producer for the given brokers and topic.
func NewWriter(brokers []string, topic string) *Writer {
	return &Writer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		},
	}
}

// PublishSites publishes the whole dataset in a single WriteMessages
// call. The message key is the site id; headers carry the area class and
// run timestamp so consumers can filter without decoding the value.
func (w *Writer) PublishSites(ctx context.Context, sites []model.EnrichedSite, generatedAt time.Time) error {
	if len(sites) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(sites))
	for i := range sites {
		msg, err := siteMessage(sites[i], generatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return eris.Wrap(err, "publish: write messages")
	}
	zap.L().Info("publish: sites published",
		zap.Int("count", len(sites)),
		zap.String("topic", w.writer.Topic))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// siteMessage marshals one enriched site into a Kafka message.
func siteMessage(site model.EnrichedSite, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(site)
	if err != nil {
		return kafkago.Message{}, eris.Wrapf(err, "publish: marshal site %s", site.SiteID)
	}
	return kafkago.Message{
		Key:   []byte(site.SiteID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "area_class", Value: []byte(site.AreaClass)},
			{Key: "generated_at", Value: []byte(generatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
