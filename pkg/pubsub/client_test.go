package pubsub

import (
	"testing"

	"github.com/angelmondragon/localdrop-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		name    string
		project string
		in      string
		want    string
	}{
		{"bare id", "proj", "orders", "projects/proj/topics/orders"},
		{"full name", "proj", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"trimmed", "proj", "  orders ", "projects/proj/topics/orders"},
		{"empty", "proj", "", ""},
		{"missing project", "", "orders", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResourceName(tc.project, "topics", tc.in); got != tc.want {
				t.Fatalf("ResourceName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := TopicNames(config.PubSubConfig{OrdersTopic: "orders", NotificationTopic: " "})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestPublisherOnNilClient(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
