package scripts

// Built-in script names.
const (
	CappedSortedSetAdd       = "cappedSortedSetAdd"
	ExpireIfNoTTL            = "expireIfNoTTL"
	ConditionalHashSetHigher = "conditionalHashSetHigher"
	ConditionalHashSetLower  = "conditionalHashSetLower"
	BoundingBoxMembership    = "boundingBoxMembership"
)

// cappedSortedSetAddBody adds (member, score) to a sorted set and trims the
// lowest-scored members once the cardinality exceeds the cap.
//
// ARGV: score, member, limit, trimCount. Returns the resulting cardinality.
//
// The trim boundary keeps the top-limit members by score: at most trimCount
// members are removed per call, and never more than the current overflow, so
// a large trimCount cannot drag the set below the cap.
const cappedSortedSetAddBody = `
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
local card = redis.call('ZCARD', KEYS[1])
local limit = tonumber(ARGV[3])
if card > limit then
    local trim = tonumber(ARGV[4])
    local overflow = card - limit
    if trim > overflow then
        trim = overflow
    end
    if trim > 0 then
        redis.call('ZREMRANGEBYRANK', KEYS[1], 0, trim - 1)
        card = card - trim
    end
end
return card
`

// expireIfNoTTLBody sets a TTL only when the key has none, as one atomic
// unit so a concurrent expirer cannot race the check.
//
// ARGV: ttlSeconds. Returns 1 when the TTL was set, 0 otherwise.
const expireIfNoTTLBody = `
local ttl = redis.call('TTL', KEYS[1])
if ttl < 0 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
    return 1
end
return 0
`

// The conditional hash set variants differ only in the comparison operator.
//
// ARGV: field, value. On an absent field the value is set unconditionally
// and returned. On an update the signed delta (new - old) is returned; when
// no update occurs the result is 0.
const conditionalHashSetHigherBody = `
local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current then
    redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
    return tonumber(ARGV[2])
end
local value = tonumber(ARGV[2])
current = tonumber(current)
if value > current then
    redis.call('HSET', KEYS[1], ARGV[1], value)
    return value - current
end
return 0
`

const conditionalHashSetLowerBody = `
local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current then
    redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
    return tonumber(ARGV[2])
end
local value = tonumber(ARGV[2])
current = tonumber(current)
if value < current then
    redis.call('HSET', KEYS[1], ARGV[1], value)
    return value - current
end
return 0
`

// boundingBoxMembershipBody resolves which registered members' spatial
// chunks enclose a query point. Four auxiliary sorted sets per base key
// store each member's chunk boundaries; a member qualifies when it appears
// in all four directional range scans.
//
// ARGV: lat, lon, token. The per-member counts accumulate in a temporary
// key derived from the caller-supplied token, so concurrent queries against
// the same base key cannot interfere; the key is deleted before returning.
const boundingBoxMembershipBody = `
local base = KEYS[1]
local acc = base .. ':acc:' .. ARGV[3]
local lat = ARGV[1]
local lon = ARGV[2]
local scans = {
    {base .. ':lat:min', '-inf', lat},
    {base .. ':lat:max', lat, '+inf'},
    {base .. ':lon:min', '-inf', lon},
    {base .. ':lon:max', lon, '+inf'},
}
for _, scan in ipairs(scans) do
    local members = redis.call('ZRANGEBYSCORE', scan[1], scan[2], scan[3])
    for _, member in ipairs(members) do
        redis.call('HINCRBY', acc, member, 1)
    end
end
local result = {}
local counts = redis.call('HGETALL', acc)
for i = 1, #counts, 2 do
    if tonumber(counts[i + 1]) >= 4 then
        table.insert(result, counts[i])
    end
end
redis.call('DEL', acc)
return result
`

// Builtins returns the built-in atomic script catalogue. The returned slice
// is freshly allocated; callers may modify it freely.
func Builtins() []Definition {
	return []Definition{
		{Name: CappedSortedSetAdd, KeyArity: 1, Body: cappedSortedSetAddBody},
		{Name: ExpireIfNoTTL, KeyArity: 1, Body: expireIfNoTTLBody},
		{Name: ConditionalHashSetHigher, KeyArity: 1, Body: conditionalHashSetHigherBody},
		{Name: ConditionalHashSetLower, KeyArity: 1, Body: conditionalHashSetLowerBody},
		{Name: BoundingBoxMembership, KeyArity: 1, Body: boundingBoxMembershipBody},
	}
}
