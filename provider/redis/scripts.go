package redis

import "github.com/redis/go-redis/v9"

// storeAndTrim inserts member at score if it is not already present, then
// trims the set down to maxSize by evicting the lowest-scored members
// first (spec.md §4.2's trimming rule). Dedup and trim happen atomically
// so no concurrent caller ever observes a set that briefly exceeds
// maxSize or a duplicate value. Modeled on the teacher's segment-alloc
// script in module/chat/seq/seq.go: KEYS/ARGV in, a small tagged return.
//
// KEYS[1] = data key
// ARGV[1] = member (event value)
// ARGV[2] = score (event at)
// ARGV[3] = maxSize (0 disables trimming)
// returns 1 if inserted, 0 if the value already existed.
var storeAndTrim = redis.NewScript(`
local key = KEYS[1]
local member = ARGV[1]
local score = tonumber(ARGV[2])
local maxSize = tonumber(ARGV[3])

if redis.call('ZSCORE', key, member) then
  return 0
end

redis.call('ZADD', key, score, member)

if maxSize > 0 then
  local card = redis.call('ZCARD', key)
  if card > maxSize then
    redis.call('ZREMRANGEBYRANK', key, 0, card - maxSize - 1)
  end
end

return 1
`)

// bumpWatermark applies the conditional-max update to a last_read
// watermark: it never regresses, and is idempotent under retry. Returns
// the watermark actually stored (as a string, converted to float64 by the
// caller).
//
// KEYS[1] = meta key
// ARGV[1] = candidate last_read value
var bumpWatermark = redis.NewScript(`
local key = KEYS[1]
local candidate = tonumber(ARGV[1])
local stored = redis.call('GET', key) or '0'
local current = tonumber(stored)

if candidate > current then
  redis.call('SET', key, ARGV[1])
  return ARGV[1]
end
return stored
`)
