package client

import (
	"github.com/hunyxv/zmux"
	pkgerr "github.com/pkg/errors"
)

// dependencyForest 请求间的依赖森林：parent 完成后 dependents 才能执行
type dependencyForest struct {
	order    []int            // 加入顺序
	nodes    map[int]struct{} // 通过 add 加入的节点
	edges    map[int][]int    // parent:dependents
	incoming map[int]int      // id:入边数，可能包含尚未 add 的 id
}

func newDependencyForest() *dependencyForest {
	return &dependencyForest{
		nodes:    make(map[int]struct{}),
		edges:    make(map[int][]int),
		incoming: make(map[int]int),
	}
}

func (f *dependencyForest) add(id int) {
	if f.has(id) {
		return
	}
	f.order = append(f.order, id)
	f.nodes[id] = struct{}{}
}

func (f *dependencyForest) has(id int) bool {
	_, ok := f.nodes[id]
	return ok
}

func (f *dependencyForest) link(parent, dependent int) {
	f.edges[parent] = append(f.edges[parent], dependent)
	f.incoming[dependent]++
}

func (f *dependencyForest) dependents(id int) []int {
	return append(make([]int, 0, len(f.edges[id])), f.edges[id]...)
}

// roots 没有入边的节点
func (f *dependencyForest) roots() []int {
	var roots []int
	for _, id := range f.order {
		if f.incoming[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// validate 所有边指向已知节点，且无环
func (f *dependencyForest) validate() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[int]int, len(f.order))

	var visit func(id int) error
	visit = func(id int) error {
		color[id] = grey
		for _, next := range f.edges[id] {
			if !f.has(next) {
				return pkgerr.Errorf("zmux: request %d depends on unknown request %d", id, next)
			}
			switch color[next] {
			case grey:
				return pkgerr.WithMessagef(zmux.ErrDependencyCycle, "request %d -> %d", id, next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range f.order {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
