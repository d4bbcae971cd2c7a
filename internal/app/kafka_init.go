package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/messaging/kafka"
)

// relayGroupPrefix — у каждого экземпляра своя consumer group, чтобы все экземпляры видели все события.
const relayGroupPrefix = "stitchboard-relay-"

// parseBrokers разбирает список брокеров через запятую.
func parseBrokers(brokers string) []string {
	var out []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := parseBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, kafka.WithProducerLogger(logger.WithField("component", "kafka-producer")))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// initRelayConsumer подписывает экземпляр на события заказов других экземпляров.
func initRelayConsumer(brokers, topic, origin string, notifier domain.Notifier, logger *log.Entry) (*kafka.Consumer, error) {
	brokerList := parseBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}
	if topic == "" {
		topic = kafka.TopicOrderEvents
	}

	consumer, err := kafka.NewConsumer(
		brokerList,
		relayGroupPrefix+origin,
		[]string{topic},
		kafka.NewNotificationRelay(notifier, origin),
		kafka.WithConsumerLogger(logger.WithField("component", "kafka-relay")),
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka relay consumer, continuing without relay")
		return nil, err
	}
	return consumer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// stopRelay останавливает relay consumer если он не nil.
func stopRelay(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka relay consumer")
	}
}
