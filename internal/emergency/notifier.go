package emergency

import (
	"encoding/json"
	"fmt"

	"asha-triage/internal/common/mqtt"
	"asha-triage/internal/models"

	"go.uber.org/zap"
)

// Notifier PHC 通知协作方接口
// 通知是尽力而为的副作用：失败由调用方记日志并吞掉，不影响升级记录
type Notifier interface {
	NotifyPHC(escalation *models.EmergencyCase) error
}

// MQTTNotifier 通过 MQTT 向 PHC 值班面板推送紧急升级
type MQTTNotifier struct {
	client      *mqtt.Client
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

// NewMQTTNotifier 创建 MQTT 通知器
// topicPrefix 末尾拼接区名，如 "asha/emergency/Mumbai"
func NewMQTTNotifier(client *mqtt.Client, topicPrefix string, qos byte, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		client:      client,
		topicPrefix: topicPrefix,
		qos:         qos,
		logger:      logger,
	}
}

// NotifyPHC 推送升级通知
func (n *MQTTNotifier) NotifyPHC(escalation *models.EmergencyCase) error {
	payload, err := json.Marshal(escalation)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation: %w", err)
	}

	topic := n.topicPrefix + escalation.Location.District

	if err := n.client.Publish(topic, n.qos, false, payload); err != nil {
		return err
	}

	n.logger.Info("PHC notification sent",
		zap.String("emergency_id", escalation.EmergencyID),
		zap.String("topic", topic),
		zap.String("phc", escalation.NearestPHC.Name),
	)

	return nil
}
