package warren_test

import (
	"context"
	"fmt"
	"log"

	warren "github.com/warrenhq/warren"
)

// Example walks the stock animal control flow with the built-in scripted
// model client, which is what New uses when no model is configured. This is
// the quickest way to see the engine route a caller without any credentials.
func Example() {
	app, err := warren.New("flows/animal_control.yaml")
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	defer app.Close(ctx)

	const call = "demo-call"

	reply, err := app.Deliver(ctx, call, "I need to surrender my dog")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.State, reply.Type)

	reply, err = app.Deliver(ctx, call, "It's a dog")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.State, reply.Type)

	reply, err = app.Deliver(ctx, call, "We're moving and can't keep him")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.State, reply.Type)

	// Output:
	// PET_SURRENDER optimized
	// PET_SURRENDER continue
	// SCHEDULE_SURRENDER optimized
}
