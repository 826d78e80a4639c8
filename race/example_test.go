package race_test

import (
	"fmt"
	"log"
	"os"

	"github.com/kolkov/detrace/race"
)

// Two sibling tasks spawned in the same sync region write the same
// address: the canonical determinacy race, reported when the sync
// collapses the region.
func Example() {
	det, err := race.Open(race.WithOutput(os.DevNull), race.WithoutSummary())
	if err != nil {
		log.Fatal(err)
	}
	defer det.Close()

	w := det.Worker(0)
	counter := race.Address(0x1000)

	w.OnSpawnTask(0)
	w.OnWrite(counter, race.SourceLocation{Name: "sum.go", Line: 11})
	w.OnTaskComplete()
	w.OnSpawnContinuation(0)

	w.OnSpawnTask(0)
	w.OnWrite(counter, race.SourceLocation{Name: "sum.go", Line: 12})
	w.OnTaskComplete()
	w.OnSpawnContinuation(0)

	w.OnBeforeSync(0)
	w.OnAfterSync(0)

	fmt.Println("races:", det.Races())
	// Output: races: 1
}

// A steal splits one strand across two workers; Rejoin recombines their
// views and reports collisions between the two sides.
func ExampleDetector_Rejoin() {
	det, err := race.Open(race.WithOutput(os.DevNull), race.WithoutSummary())
	if err != nil {
		log.Fatal(err)
	}
	defer det.Close()

	counter := race.Address(0x1000)

	// The victim runs the spawned task.
	victim := det.Worker(0)
	victim.OnSpawnTask(0)
	victim.OnWrite(counter, race.SourceLocation{})
	victim.OnTaskComplete()

	// A thief steals the continuation and writes the same address.
	thief := det.Steal()
	thief.OnSpawnContinuation(0)
	thief.OnWrite(counter, race.SourceLocation{})
	thief.OnAfterSync(0)

	det.Rejoin(victim, thief)
	victim.OnAfterSync(0)

	fmt.Println("races:", det.Races())
	// Output: races: 1
}
