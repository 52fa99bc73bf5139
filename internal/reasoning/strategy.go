package reasoning

// Strategy — способ получить вывод для задачи
type Strategy int

const (
	StrategyHeuristic Strategy = iota
	StrategyRemote
)

func (s Strategy) String() string {
	if s == StrategyRemote {
		return "remote"
	}
	return "heuristic"
}

// SelectStrategy Удаленный вывод выбирается только при непустом ключе и доступном клиенте.
func SelectStrategy(credential string, client Inferencer) Strategy {
	if credential == "" || client == nil {
		return StrategyHeuristic
	}
	if a, ok := client.(availability); ok && !a.Available() {
		return StrategyHeuristic
	}
	return StrategyRemote
}
