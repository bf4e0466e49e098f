package pipeline

// Observer receives the pipeline state after each completed stage.
// Observation is passive; observers must not mutate the state.
type Observer func(stage Stage, state *State)
