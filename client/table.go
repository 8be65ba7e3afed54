package client

import (
	"sort"
	"sync"

	"github.com/hunyxv/utils/spinlock"
	"github.com/hunyxv/zmux"
	pkgerr "github.com/pkg/errors"
)

// CorrelationTable id 到回调的关联表
//
//	组合阶段 Bind，Freeze 之后只允许 Resolve；每个 id 最多解析一次。
//	Bind 与 Resolve 可以发生在不同的 goroutine 上。
type CorrelationTable struct {
	lock     sync.Locker
	bindings map[int]Handler   // id:handler
	resolved map[int]struct{} // 已送达结果的 id
	frozen   bool
}

func NewCorrelationTable() *CorrelationTable {
	return &CorrelationTable{
		lock:     spinlock.NewSpinLock(),
		bindings: make(map[int]Handler),
		resolved: make(map[int]struct{}),
	}
}

// Bind 绑定 id 与回调
func (t *CorrelationTable) Bind(id int, h Handler) error {
	if h == nil {
		return zmux.ErrNilHandler
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.frozen {
		return zmux.ErrTableFrozen
	}
	_, bound := t.bindings[id]
	_, done := t.resolved[id]
	if bound || done {
		return pkgerr.WithMessagef(zmux.ErrDuplicateBinding, "id %d", id)
	}
	t.bindings[id] = h
	return nil
}

// Freeze 之后不再接受 Bind
func (t *CorrelationTable) Freeze() {
	t.lock.Lock()
	t.frozen = true
	t.lock.Unlock()
}

func (t *CorrelationTable) Frozen() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.frozen
}

// Resolve 取出并移除 id 的回调
//
//	未绑定的 id 返回 *zmux.UnknownResponseIDError，
//	已解析过的 id 返回 *zmux.DoubleDispatchError。
func (t *CorrelationTable) Resolve(id int) (Handler, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if h, ok := t.bindings[id]; ok {
		delete(t.bindings, id)
		t.resolved[id] = struct{}{}
		return h, nil
	}
	if _, ok := t.resolved[id]; ok {
		return nil, &zmux.DoubleDispatchError{ID: id}
	}
	return nil, &zmux.UnknownResponseIDError{ID: id}
}

// Unresolved 尚未解析的 id，升序
func (t *CorrelationTable) Unresolved() []int {
	t.lock.Lock()
	ids := make([]int, 0, len(t.bindings))
	for id := range t.bindings {
		ids = append(ids, id)
	}
	t.lock.Unlock()

	sort.Ints(ids)
	return ids
}

// Len 尚未解析的回调数量
func (t *CorrelationTable) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.bindings)
}
