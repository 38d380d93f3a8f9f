package plan

// GroupPhases walks tasks in order and starts a new phase whenever the step
// label differs from the previous item's label. A label that reappears after
// an interruption opens a new phase; it is never merged with the earlier one.
func GroupPhases(tasks []TaskItem) []Phase {
	var phases []Phase
	for i := range tasks {
		if len(phases) == 0 || phases[len(phases)-1].Name != tasks[i].Step {
			phases = append(phases, Phase{
				Name:  tasks[i].Step,
				Order: len(phases) + 1,
			})
		}
		cur := &phases[len(phases)-1]
		cur.Tasks = append(cur.Tasks, tasks[i])
	}
	return phases
}
