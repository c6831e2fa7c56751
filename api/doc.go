// Package api
// Author: momentics <momentics@gmail.com>
//
// Core capability surface of hioload-devmem.
// Declares the stream-ordered memory resource contract, stream handles,
// allocation records, structured errors, and accounting DTOs.
// Implementations live in backend/, pool/ and adapters/.
package api
