// Accesses in this file are not reported.
//
//memaccess:ignore
package memaccess

func silent(p *int32) {
	*p = 3
}
