// Package harness runs scripted scenarios against a queue store and its
// write-behind buffer.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	initial:
//	  - { id: "0", v: 1 }
//	buffer:
//	  size: 1
//	  locator: position
//	steps:
//	  - op: update
//	    path: "0"
//	    changes: { v: 2 }
//	  - op: load
//	    path: "0"
//	  - op: change
//	    id: "0"
//	    changes: { v: 3 }
//	  - op: flush
//	assertions:
//	  - type: value_at
//	    path: "0.v"
//	    value: 3
//	  - type: saves
//	    count: 2
//
// # Step Operations
//
// Store operations: add, remove, update, sort, clear.
// Buffer operations: load, create, change, delete, flush, rollback,
// rollback_all.
//
// A step that fails is reported as a scenario error unless it sets
// expect_error, in which case a step that succeeds is the error.
//
// # Assertion Types
//
//   - length: the root sequence (or the sequence at path) has count elements
//   - value_at: the value at path equals value
//   - saves: the persistence adapter saved count times
//   - trace_count: count applied actions of type action (all types if empty)
//   - buffer_len: the buffer holds count records
//   - dirty: the buffered record id has pending changes (value: true|false)
//
// # Deterministic Testing
//
// Every run uses a fresh store backed by an in-memory adapter, with auto-save
// disabled on the buffer. The trace lists applied actions in order, so two
// runs of one scenario produce identical traces for golden comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/update_nested_index.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
