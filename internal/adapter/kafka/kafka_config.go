package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

func baseConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_6_0_0
	cfg.Net.DialTimeout = 5 * time.Second
	return cfg
}

func NewGroup(brokers []string, groupID, clientID string) (sarama.ConsumerGroup, error) {
	cfg := baseConfig(clientID)
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}

func producerConfig(clientID string) *sarama.Config {
	cfg := baseConfig(clientID)
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func NewSyncProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(brokers, producerConfig(clientID))
}
