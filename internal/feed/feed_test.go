package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doorlist/concierge-core/internal/model"
)

// Transports invoke deliver from their own goroutines, so an unsubscribe
// arriving mid-delivery must never turn into a send on a closed channel.
func TestSubscriptionDeliverCloseRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		sub := &Subscription{
			Topic:  model.TopicMessages,
			Filter: "t1",
			ch:     make(chan model.ChangeEvent, subscriptionBuffer),
		}

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					sub.deliver(model.ChangeEvent{Topic: model.TopicMessages, Key: "t1", EmittedAt: time.Now()})
				}
			}()
		}
		sub.close()
		wg.Wait()
	}
}

func TestSubscriptionDeliverAfterCloseIsNoOp(t *testing.T) {
	sub := &Subscription{
		Topic:  model.TopicThreads,
		Filter: "u1",
		ch:     make(chan model.ChangeEvent, subscriptionBuffer),
	}

	sub.close()
	sub.close() // repeated closes are safe
	sub.deliver(model.ChangeEvent{Topic: model.TopicThreads, Key: "u1"})

	_, open := <-sub.Events()
	assert.False(t, open)
}
