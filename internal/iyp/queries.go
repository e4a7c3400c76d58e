package iyp

// Cypher catalog. All membership queries return one row per
// (exchange, AS) edge with the same four columns so decoding is shared.
//
// AS-to-country attribution follows NRO delegation records; only ASes
// that originate at least one prefix are counted as active.

const queryMembershipsAll = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(:Country {country_code:$country_code})
WHERE (a)-[:ORIGINATE]-(:Prefix)
MATCH (a)-[m:MEMBER_OF]-(ix:IXP)
OPTIONAL MATCH (ix)-[:COUNTRY]-(cc:Country)
RETURN ix.name AS ix_name, a.asn AS asn, cc.country_code AS ix_country, m.reference_org AS source
`

const queryMembershipsTransit = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(:Country {country_code:$country_code})
MATCH (a)-[r:RANK {reference_org:'IHR', weightscheme:'as'}]-(:Ranking)
WHERE (a)-[:ORIGINATE]-(:Prefix) AND r.hege > $hegemony_min
MATCH (a)-[m:MEMBER_OF]-(ix:IXP)
OPTIONAL MATCH (ix)-[:COUNTRY]-(cc:Country)
RETURN ix.name AS ix_name, a.asn AS asn, cc.country_code AS ix_country, m.reference_org AS source
`

const queryMembershipsEyeball = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(c:Country {country_code:$country_code})
MATCH (a)-[p:POPULATION]-(c)
WHERE (a)-[:ORIGINATE]-(:Prefix) AND p.percent > $eyeball_min_percent
MATCH (a)-[m:MEMBER_OF]-(ix:IXP)
OPTIONAL MATCH (ix)-[:COUNTRY]-(cc:Country)
RETURN ix.name AS ix_name, a.asn AS asn, cc.country_code AS ix_country, m.reference_org AS source
`

const queryMembershipsContent = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(:Country {country_code:$country_code})
MATCH (a)-[:CATEGORIZED]-(:Tag {label:'Content'})
WHERE (a)-[:ORIGINATE]-(:Prefix)
MATCH (a)-[m:MEMBER_OF]-(ix:IXP)
OPTIONAL MATCH (ix)-[:COUNTRY]-(cc:Country)
RETURN ix.name AS ix_name, a.asn AS asn, cc.country_code AS ix_country, m.reference_org AS source
`

// International: members at exchanges hosted in the region whose AS is
// registered elsewhere.
const queryMembershipsInternational = `
MATCH (ix:IXP)-[:COUNTRY]-(cc:Country {country_code:$country_code})
MATCH (a:AS)-[m:MEMBER_OF]-(ix)
WHERE (a)-[:ORIGINATE]-(:Prefix)
  AND NOT (a)-[:COUNTRY {reference_org:'NRO'}]-(cc)
RETURN ix.name AS ix_name, a.asn AS asn, cc.country_code AS ix_country, m.reference_org AS source
`

// Per-AS exchange counts for the distribution tables. ASes with no
// membership come back with nb_ix = 0 via the OPTIONAL MATCH.
const queryDistributionAll = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(:Country {country_code:$country_code})
WHERE (a)-[:ORIGINATE]-(:Prefix)
OPTIONAL MATCH (a)-[:MEMBER_OF]-(ix:IXP)
RETURN a.asn AS asn, count(DISTINCT ix) AS nb_ix
`

const queryDistributionTransit = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(:Country {country_code:$country_code})
MATCH (a)-[r:RANK {reference_org:'IHR', weightscheme:'as'}]-(:Ranking)
WHERE (a)-[:ORIGINATE]-(:Prefix) AND r.hege > $hegemony_min
OPTIONAL MATCH (a)-[:MEMBER_OF]-(ix:IXP)
RETURN a.asn AS asn, count(DISTINCT ix) AS nb_ix
`

const queryDistributionEyeball = `
MATCH (a:AS)-[:COUNTRY {reference_org:'NRO'}]-(c:Country {country_code:$country_code})
MATCH (a)-[p:POPULATION]-(c)
WHERE (a)-[:ORIGINATE]-(:Prefix) AND p.percent > $eyeball_min_percent
OPTIONAL MATCH (a)-[:MEMBER_OF]-(ix:IXP)
RETURN a.asn AS asn, count(DISTINCT ix) AS nb_ix
`

// When the country population estimate was fetched; shown in report
// headers so readers know how fresh the data is.
const queryReferenceTime = `
MATCH (:Country {country_code:$country_code})-[p:POPULATION]-(:Estimate)
RETURN p.reference_time_fetch
`
