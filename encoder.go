package zmux

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// NewIndividualRequest 将逻辑请求转换为线上表示
//
//	headers 原样拷贝（同名多值保留），cookies 合并为一个头，
//	entity 仅在有 body 的方法上编码。
func NewIndividualRequest(id int, r *Request, dependents []int) (IndividualRequest, error) {
	if r == nil {
		return IndividualRequest{}, ErrNilRequest
	}
	if err := ValidateCookies(r.Cookies); err != nil {
		return IndividualRequest{}, errors.WithMessagef(err, "zmux: request %d", id)
	}

	ir := IndividualRequest{
		ID:                  id,
		Method:              strings.ToUpper(r.Method),
		RelativeURL:         r.RelativeURL(),
		Headers:             r.Headers.Clone(),
		Cookies:             EncodeCookies(r.Cookies),
		DependentRequestIDs: append(make([]int, 0, len(dependents)), dependents...),
	}

	if r.Entity != nil && r.HasBody() {
		body, err := marshal(r.Entity)
		if err != nil {
			return IndividualRequest{}, errors.Wrapf(err, "zmux: encode entity of request %d", id)
		}
		ir.Body = msgpack.RawMessage(body)
	}
	return ir, nil
}
