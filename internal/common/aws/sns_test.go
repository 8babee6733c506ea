package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-query-engine/internal/query/engine"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, input *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestAlertPublisher(t *testing.T) {
	fake := &fakeSNS{}
	p := NewAlertPublisher(fake, "arn:aws:sns:us-east-1:123:hr-alerts", "hr-query-engine")

	alert := engine.Alert{QueryID: "q-1", Query: "Top performers", Error: "PIPELINE_EXECUTION_FAILED: down", Timestamp: time.Now().UTC()}
	require.NoError(t, p.PublishAlert(context.Background(), alert))

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123:hr-alerts", *in.TopicArn)
	assert.Equal(t, "[hr-query-engine] query failed", *in.Subject)
	assert.Equal(t, "q-1", *in.MessageAttributes["query_id"].StringValue)

	var got engine.Alert
	require.NoError(t, json.Unmarshal([]byte(*in.Message), &got))
	assert.Equal(t, "Top performers", got.Query)
}

func TestAlertPublisher_Error(t *testing.T) {
	p := NewAlertPublisher(&fakeSNS{err: errors.New("throttled")}, "arn", "svc")
	err := p.PublishAlert(context.Background(), engine.Alert{QueryID: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFICATION_SEND_FAILED")
}
